// Package consensus implements the bespoke validation rules that decide
// whether a state transition may be admitted: structural conformance of
// packets, id correctness, uniqueness and ownership scoping, and relation
// legality. Validation is a pure predicate; nothing here mutates state.
package consensus

import "fmt"

// Kind distinguishes the rejection reasons of transition validation
type Kind int

// Violation kinds
const (
	KindOK Kind = iota
	KindStructural
	KindInvalidObjectID
	KindDuplicateObjectIDInPacket
	KindDuplicateObjectIDInSpace
	KindObjectNotFound
	KindObjectOwnedByAnotherUser
	KindSelfRelationForbidden
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindStructural:
		return "structural validation failed"
	case KindInvalidObjectID:
		return "invalid object id"
	case KindDuplicateObjectIDInPacket:
		return "duplicate object id in packet"
	case KindDuplicateObjectIDInSpace:
		return "duplicate object id in dap space"
	case KindObjectNotFound:
		return "object id not present in dap space"
	case KindObjectOwnedByAnotherUser:
		return "object belongs to another user"
	case KindSelfRelationForbidden:
		return "object cannot relate to self"
	}
	return "unknown"
}

// Result is the structured outcome of a validation pass. A failed result
// carries enough to identify the offending object and field.
type Result struct {
	Valid    bool
	Kind     Kind
	ObjType  string
	ObjID    string
	Property string
	Message  string
}

func (r *Result) String() string {
	if r.Valid {
		return "valid"
	}
	return fmt.Sprintf("%s (objtype=%q id=%q property=%q): %s",
		r.Kind, r.ObjType, r.ObjID, r.Property, r.Message)
}

// OK returns a passing result
func OK() *Result {
	return &Result{Valid: true, Kind: KindOK}
}

// Fail returns a failing result of the given kind
func Fail(kind Kind, objType, objID, property, message string) *Result {
	return &Result{
		Kind:     kind,
		ObjType:  objType,
		ObjID:    objID,
		Property: property,
		Message:  message,
	}
}

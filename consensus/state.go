package consensus

import (
	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/schema"
)

// ValidateTransitionData fully validates an object packet against the
// DAP's current data before it may be applied. Checks run in a fixed
// order and short-circuit on the first failure:
// structural -> existing-state structural -> id correctness ->
// intra-packet uniqueness -> cross-state uniqueness/ownership ->
// relation legality.
//
// Contract packets carry no objects and pass after the structural check.
func (v *Validator) ValidateTransitionData(hdr *object.STHeader, pkt *object.STPacket, dapData []object.OwnedObject, dapSchema schema.Def) *Result {
	if !pkt.IsObjects() {
		if pkt.IsContract() {
			return v.ValidateDapContract(pkt.DapContract)
		}
		return OK()
	}

	if res := v.ValidatePacketObjects(pkt.DapObjects, dapSchema); !res.Valid {
		return res
	}

	// guards against contract/schema drift since the data was committed
	if res := v.validateDapData(dapData, dapSchema); !res.Valid {
		return res
	}

	if res := v.validateIDs(hdr, pkt, dapSchema); !res.Valid {
		return res
	}

	if res := v.validateIDUniqueness(hdr, pkt, dapData); !res.Valid {
		return res
	}

	return v.validateRelations(hdr, pkt, dapSchema)
}

func (v *Validator) validateDapData(dapData []object.OwnedObject, dapSchema schema.Def) *Result {
	for _, owned := range dapData {
		if res := v.ValidateDapObject(owned.Data, dapSchema); !res.Valid {
			return res
		}
	}
	return OK()
}

// validateIDs recomputes composite primary keys for the submitting
// identity and rejects any mismatch
func (v *Validator) validateIDs(hdr *object.STHeader, pkt *object.STPacket, dapSchema schema.Def) *Result {
	for _, obj := range pkt.DapObjects {
		key, err := object.ComposePrimaryKey(obj, dapSchema, hdr.UID)
		if err != nil {
			return Fail(KindInvalidObjectID, obj.ObjType(), obj.ID(), "id", err.Error())
		}
		if key != "" && obj.ID() != key {
			return Fail(KindInvalidObjectID, obj.ObjType(), obj.ID(), "id", "id does not match composite primary key")
		}
	}
	return OK()
}

func (v *Validator) validateIDUniqueness(hdr *object.STHeader, pkt *object.STPacket, dapData []object.OwnedObject) *Result {
	for i, obj := range pkt.DapObjects {

		// no two creates of the same (objtype, id) inside one packet
		for j, other := range pkt.DapObjects {
			if i == j {
				continue
			}
			if obj.Act() == object.ActCreate && other.Act() == object.ActCreate &&
				obj.ObjType() == other.ObjType() && obj.ID() == other.ID() {
				return Fail(KindDuplicateObjectIDInPacket, obj.ObjType(), obj.ID(), "id", "duplicate object id in the packet")
			}
		}

		existing, found := findInSpace(dapData, obj.ObjType(), obj.ID())

		switch obj.Act() {
		case object.ActCreate:
			if found {
				return Fail(KindDuplicateObjectIDInSpace, obj.ObjType(), obj.ID(), "id", "duplicate object id in dap data")
			}
		case object.ActUpdate, object.ActDelete:
			if !found {
				return Fail(KindObjectNotFound, obj.ObjType(), obj.ID(), "id", "object id not present in dap data")
			}
			if existing.UserID != hdr.UID {
				return Fail(KindObjectOwnedByAnotherUser, obj.ObjType(), obj.ID(), "id", "object with this id belongs to another user")
			}
		}
	}
	return OK()
}

func findInSpace(dapData []object.OwnedObject, objType, id string) (object.OwnedObject, bool) {
	for _, owned := range dapData {
		if owned.Data.ObjType() == objType && owned.Data.ID() == id {
			return owned, true
		}
	}
	return object.OwnedObject{}, false
}

// validateRelations rejects any declared relation field that references
// the submitting identity itself
func (v *Validator) validateRelations(hdr *object.STHeader, pkt *object.STPacket, dapSchema schema.Def) *Result {
	for _, obj := range pkt.DapObjects {
		for _, field := range schema.SubSchemaRelations(dapSchema, obj.ObjType()) {
			if obj.RelationUserID(field) == hdr.UID {
				return Fail(KindSelfRelationForbidden, obj.ObjType(), obj.ID(), field, "object cannot relate to self")
			}
		}
	}
	return OK()
}

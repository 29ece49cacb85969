package object

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/sjson"

	"github.com/tonicpow/dap-engine-go/schema"
)

var cborEnc cbor.EncMode

func init() {
	var err error
	cborEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

// Canonicalize reduces any JSON-serializable value to plain maps, slices
// and scalars, so documents hash identically regardless of how they were
// constructed
func Canonicalize(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "canonicalize")
	}
	var out interface{}
	if err = json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "canonicalize")
	}
	return out, nil
}

// CanonicalJSON returns the field-order-insensitive serialization of a
// value: object keys are emitted sorted at every level
func CanonicalJSON(v interface{}) ([]byte, error) {
	c, err := Canonicalize(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// hashEnvelope hashes a document wrapped in its system envelope keyword,
// with the metadata section stripped first
func hashEnvelope(keyword string, doc interface{}) (string, error) {
	b, err := CanonicalJSON(map[string]interface{}{keyword: doc})
	if err != nil {
		return "", err
	}
	if b, err = sjson.DeleteBytes(b, keyword+".meta"); err != nil {
		return "", errors.Wrap(err, "stripping meta")
	}
	return digest(b), nil
}

// HashSubTx returns the canonical hash of a registration record
func HashSubTx(t *SubTx) (string, error) {
	return hashEnvelope(KindSubTx.Keyword(), t)
}

// HashBlockchainUser returns the canonical hash of an identity record
func HashBlockchainUser(u *BlockchainUser) (string, error) {
	return hashEnvelope(KindBlockchainUser.Keyword(), u)
}

// HashSTHeader returns the canonical hash of a transition header
func HashSTHeader(h *STHeader) (string, error) {
	return hashEnvelope(KindSTHeader.Keyword(), h)
}

// HashDapContract returns the canonical hash of a DAP contract
func HashDapContract(c *DapContract) (string, error) {
	return hashEnvelope(KindDapContract.Keyword(), c)
}

// HashSTPacket returns the canonical hash of a transition packet. Object
// packets hash their objects reduced to schema-declared fields, which
// requires the target DAP schema.
func HashSTPacket(p *STPacket, dapSchema schema.Def) (string, error) {
	if p.IsObjects() && dapSchema != nil {
		reduced := *p
		reduced.DapObjects = make([]DapObject, len(p.DapObjects))
		for i, obj := range p.DapObjects {
			extracted, err := ExtractSchemaFields(obj, dapSchema)
			if err != nil {
				return "", err
			}
			reduced.DapObjects[i] = extracted
		}
		return hashEnvelope(KindSTPacket.Keyword(), &reduced)
	}
	return hashEnvelope(KindSTPacket.Keyword(), p)
}

// HashDapObject returns the canonical hash of a DAP object, reduced to its
// schema-declared fields when a schema is given
func HashDapObject(obj DapObject, dapSchema schema.Def) (string, error) {
	doc := obj
	if dapSchema != nil {
		extracted, err := ExtractSchemaFields(obj, dapSchema)
		if err != nil {
			return "", err
		}
		doc = extracted
	}
	b, err := CanonicalJSON(doc)
	if err != nil {
		return "", err
	}
	if b, err = sjson.DeleteBytes(b, "meta"); err != nil {
		return "", errors.Wrap(err, "stripping meta")
	}
	return digest(b), nil
}

// AssignID computes a document's canonical hash and stores it in the
// metadata id field. The document's Go type is its kind tag; dapSchema is
// only consulted for object packets and DAP objects.
func AssignID(doc interface{}, dapSchema schema.Def) error {
	switch d := doc.(type) {
	case *SubTx:
		id, err := HashSubTx(d)
		return setMetaID(&d.Meta, id, err)
	case *BlockchainUser:
		id, err := HashBlockchainUser(d)
		return setMetaID(&d.Meta, id, err)
	case *STHeader:
		id, err := HashSTHeader(d)
		return setMetaID(&d.Meta, id, err)
	case *STPacket:
		id, err := HashSTPacket(d, dapSchema)
		return setMetaID(&d.Meta, id, err)
	case *DapContract:
		id, err := HashDapContract(d)
		return setMetaID(&d.Meta, id, err)
	case DapObject:
		id, err := HashDapObject(d, dapSchema)
		if err != nil {
			return err
		}
		d.SetMeta("id", id)
		return nil
	}
	return errors.Errorf("cannot assign id to %T", doc)
}

func setMetaID(m *Meta, id string, err error) error {
	if err != nil {
		return err
	}
	if *m == nil {
		*m = Meta{}
	}
	(*m)["id"] = id
	return nil
}

// ComposePrimaryKey deterministically derives an object's composite
// primary key from the owning identity and the declared key fields.
// Returns "" when the object's subschema declares no composite key.
func ComposePrimaryKey(obj DapObject, dapSchema schema.Def, ownerID string) (string, error) {
	fields, composite := schema.PrimaryKeyFields(dapSchema, obj.ObjType())
	if !composite {
		return "", nil
	}

	data := []byte(ownerID)
	if len(fields) > 0 {
		values := make([]interface{}, len(fields))
		for i, field := range fields {
			val, err := Canonicalize(obj[field])
			if err != nil {
				return "", err
			}
			values[i] = val
		}
		enc, err := cborEnc.Marshal(values)
		if err != nil {
			return "", errors.Wrap(err, "encoding key fields")
		}
		data = append(data, enc...)
	}

	return digest(data), nil
}

// ExtractSchemaFields clones a DAP object keeping only base fields and
// the properties its subschema declares
func ExtractSchemaFields(obj DapObject, dapSchema schema.Def) (DapObject, error) {
	sub := schema.SubSchema(dapSchema, obj.ObjType())
	if sub == nil {
		return nil, errors.Errorf("unknown object type %q", obj.ObjType())
	}

	keep := map[string]bool{"objtype": true, "id": true, "rev": true, "act": true}
	collectProperties(sub, keep)

	out := DapObject{}
	for key, val := range obj {
		if !keep[key] {
			continue
		}
		c, err := Canonicalize(val)
		if err != nil {
			return nil, err
		}
		out[key] = c
	}
	return out, nil
}

func collectProperties(sub map[string]interface{}, keep map[string]bool) {
	if props, ok := sub["properties"].(map[string]interface{}); ok {
		for name := range props {
			keep[name] = true
		}
	}
	if allOf, ok := sub["allOf"].([]interface{}); ok {
		for _, entry := range allOf {
			if m, isMap := entry.(map[string]interface{}); isMap {
				collectProperties(m, keep)
			}
		}
	}
}

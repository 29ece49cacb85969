package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonicpow/dap-engine-go/object"
	"github.com/tonicpow/dap-engine-go/schema"
)

func testDapSchema() schema.Def {
	return schema.Def{
		"$schema": schema.DapSchemaMetaURI,
		"title":   "SocialDap",
		"profile": map[string]interface{}{
			"allOf": []interface{}{
				map[string]interface{}{"$ref": schema.DapObjectBaseRef},
			},
			"properties": map[string]interface{}{
				"aboutme": map[string]interface{}{"type": "string"},
				"avatar":  map[string]interface{}{"type": "string"},
			},
		},
		"contact": map[string]interface{}{
			"allOf": []interface{}{
				map[string]interface{}{"$ref": schema.DapObjectBaseRef},
			},
			"properties": map[string]interface{}{
				"toUser":      map[string]interface{}{"$ref": schema.RelationRef},
				"hdextpubkey": map[string]interface{}{"type": "string"},
			},
			"primaryKey": map[string]interface{}{
				"composite": true,
				"includes":  []interface{}{"toUser"},
			},
		},
	}
}

func newTestValidator(t *testing.T) *Validator {
	v, err := NewValidator()
	require.NoError(t, err)
	return v
}

// TestValidateSubTx will check registration records structurally
func TestValidateSubTx(t *testing.T) {
	v := newTestValidator(t)

	tx, err := object.NewSubTx("alice", "key1")
	require.NoError(t, err)
	assert.True(t, v.ValidateSubTx(tx).Valid)

	short, err := object.NewSubTx("ab", "key1")
	require.NoError(t, err)
	res := v.ValidateSubTx(short)
	assert.False(t, res.Valid)
	assert.Equal(t, KindStructural, res.Kind)

	noKey, err := object.NewSubTx("alice", "")
	require.NoError(t, err)
	assert.False(t, v.ValidateSubTx(noKey).Valid)
}

// TestValidateSTHeader will require a packet reference
func TestValidateSTHeader(t *testing.T) {
	v := newTestValidator(t)

	hdr, err := object.NewSTHeader("cafebabe", "alice-uid", "")
	require.NoError(t, err)
	assert.True(t, v.ValidateSTHeader(hdr).Valid)

	hdr.PakID = ""
	assert.False(t, v.ValidateSTHeader(hdr).Valid)
}

// TestValidateSTPacket will accept contract or object payloads, not both
// absent
func TestValidateSTPacket(t *testing.T) {
	v := newTestValidator(t)
	d := testDapSchema()

	empty := object.NewSTPacket()
	assert.False(t, v.ValidateSTPacket(empty, nil).Valid)

	contract, err := object.NewDapContract(d)
	require.NoError(t, err)
	withContract := object.NewSTPacket()
	withContract.DapContract = contract
	assert.True(t, v.ValidateSTPacket(withContract, nil).Valid)

	profile := object.NewDapObject("profile")
	profile["aboutme"] = "hello"
	withObjects := object.NewSTPacket()
	withObjects.DapID = "some-dap"
	withObjects.DapObjects = []object.DapObject{profile}
	assert.True(t, v.ValidateSTPacket(withObjects, d).Valid)

	// object packets cannot be judged without the target schema
	assert.False(t, v.ValidateSTPacket(withObjects, nil).Valid)
}

// TestValidateDapObject will check objects against their subschema
func TestValidateDapObject(t *testing.T) {
	v := newTestValidator(t)
	d := testDapSchema()

	profile := object.NewDapObject("profile")
	profile["aboutme"] = "hello"
	assert.True(t, v.ValidateDapObject(profile, d).Valid)

	badField := object.NewDapObject("profile")
	badField["aboutme"] = 7
	res := v.ValidateDapObject(badField, d)
	assert.False(t, res.Valid)
	assert.Equal(t, KindStructural, res.Kind)

	badAct := object.NewDapObject("profile")
	badAct["act"] = 9
	assert.False(t, v.ValidateDapObject(badAct, d).Valid)

	unknown := object.NewDapObject("widget")
	res = v.ValidateDapObject(unknown, d)
	assert.False(t, res.Valid)
	assert.Equal(t, "widget", res.ObjType)
}

// TestValidateDapObjectRelationShape will enforce the relation definition
func TestValidateDapObjectRelationShape(t *testing.T) {
	v := newTestValidator(t)
	d := testDapSchema()

	contact := object.NewDapObject("contact")
	contact["toUser"] = map[string]interface{}{"userId": "bob-uid"}
	assert.True(t, v.ValidateDapObject(contact, d).Valid)

	contact["toUser"] = map[string]interface{}{"nickname": "bob"}
	assert.False(t, v.ValidateDapObject(contact, d).Valid)
}

// TestValidateUsername will bound length and charset
func TestValidateUsername(t *testing.T) {
	cases := []struct {
		uname string
		valid bool
	}{
		{"alice", true},
		{"bob_2", true},
		{"abc", true},
		{"ab", false},
		{"Alice", false},
		{"alice!", false},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.valid, ValidateUsername(c.uname), "uname %q", c.uname)
	}
}

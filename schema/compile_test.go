package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validSubschema returns a minimal well-formed subschema definition
func validSubschema() map[string]interface{} {
	return map[string]interface{}{
		"allOf": []interface{}{
			map[string]interface{}{"$ref": DapObjectBaseRef},
		},
		"properties": map[string]interface{}{
			"message": map[string]interface{}{"type": "string"},
		},
	}
}

// validDapSchema returns a well-formed two-subschema DAP definition
func validDapSchema() Def {
	return Def{
		"$schema": DapSchemaMetaURI,
		"title":   "SocialDap",
		"profile": map[string]interface{}{
			"allOf": []interface{}{
				map[string]interface{}{"$ref": DapObjectBaseRef},
			},
			"properties": map[string]interface{}{
				"aboutme": map[string]interface{}{"type": "string"},
				"avatar":  map[string]interface{}{"type": "string"},
			},
		},
		"contact": map[string]interface{}{
			"allOf": []interface{}{
				map[string]interface{}{"$ref": DapObjectBaseRef},
			},
			"properties": map[string]interface{}{
				"toUser":      map[string]interface{}{"$ref": RelationRef},
				"hdextpubkey": map[string]interface{}{"type": "string"},
			},
			"primaryKey": map[string]interface{}{
				"composite": true,
				"includes":  []interface{}{"toUser"},
			},
		},
	}
}

// TestCompileDapSchemaValid will accept a well-formed definition
func TestCompileDapSchemaValid(t *testing.T) {
	res := CompileDapSchema(validDapSchema())
	require.NotNil(t, res)
	assert.True(t, res.Valid)
	assert.Equal(t, CodeOK, res.Code)
}

// TestCompileDapSchemaMetaURI will reject wrong or missing $schema values
func TestCompileDapSchemaMetaURI(t *testing.T) {
	d := validDapSchema()
	d["$schema"] = "http://json-schema.org/draft-07/schema#"
	res := CompileDapSchema(d)
	assert.False(t, res.Valid)
	assert.Equal(t, CodeInvalidMetaschema, res.Code)

	delete(d, "$schema")
	res = CompileDapSchema(d)
	assert.False(t, res.Valid)
	assert.Equal(t, CodeInvalidMetaschema, res.Code)

	res = CompileDapSchema(nil)
	assert.False(t, res.Valid)
	assert.Equal(t, CodeInvalidMetaschema, res.Code)
}

// TestCompileDapSchemaTitleBounds will enforce the title length range
func TestCompileDapSchemaTitleBounds(t *testing.T) {
	cases := []struct {
		length int
		valid  bool
	}{
		{2, false},
		{3, true},
		{24, true},
		{25, false},
	}
	for _, c := range cases {
		d := validDapSchema()
		d["title"] = strings.Repeat("a", c.length)
		res := CompileDapSchema(d)
		if c.valid {
			assert.True(t, res.Valid, "title length %d", c.length)
		} else {
			assert.False(t, res.Valid, "title length %d", c.length)
			assert.Equal(t, CodeInvalidSchemaTitle, res.Code)
		}
	}

	d := validDapSchema()
	d["title"] = 42
	res := CompileDapSchema(d)
	assert.False(t, res.Valid)
	assert.Equal(t, CodeInvalidSchemaTitle, res.Code)
}

// TestCompileDapSchemaSubschemaCount will require at least one subschema
func TestCompileDapSchemaSubschemaCount(t *testing.T) {
	res := CompileDapSchema(Def{
		"$schema": DapSchemaMetaURI,
		"title":   "EmptyDap",
	})
	assert.False(t, res.Valid)
	assert.Equal(t, CodeInvalidSubschemaCount, res.Code)
}

// TestCompileDapSchemaSubschemaNames will enforce name length and charset
func TestCompileDapSchemaSubschemaNames(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"abc", true},
		{strings.Repeat("z", 24), true},
		{"ab", false},
		{strings.Repeat("z", 25), false},
		{"Memo", false},
		{"my-memo", false},
		{"my.memo", false},
	}
	for _, c := range cases {
		d := Def{
			"$schema": DapSchemaMetaURI,
			"title":   "NamingDap",
			c.name:    validSubschema(),
		}
		res := CompileDapSchema(d)
		if c.valid {
			assert.True(t, res.Valid, "name %q", c.name)
		} else {
			assert.False(t, res.Valid, "name %q", c.name)
			assert.Equal(t, CodeInvalidSubschemaName, res.Code, "name %q", c.name)
			assert.Equal(t, c.name, res.Keyword)
		}
	}
}

// TestCompileDapSchemaReservedNames will reject platform and system keywords
func TestCompileDapSchemaReservedNames(t *testing.T) {
	reserved := []string{"type", "subtx", "stheader", "stpacket", "dapcontract", "dapobjectbase", "relation", "meta"}
	for _, name := range reserved {
		d := Def{
			"$schema": DapSchemaMetaURI,
			"title":   "ReservedDap",
			name:      validSubschema(),
		}
		res := CompileDapSchema(d)
		assert.False(t, res.Valid, "name %q", name)
		assert.Equal(t, CodeReservedSubschemaName, res.Code, "name %q", name)
	}
}

// TestCompileDapSchemaInheritance will require the base object $ref first
func TestCompileDapSchemaInheritance(t *testing.T) {
	noAllOf := validSubschema()
	delete(noAllOf, "allOf")

	wrongRef := validSubschema()
	wrongRef["allOf"] = []interface{}{
		map[string]interface{}{"$ref": "http://dash.org/schemas/sys#/definitions/relation"},
	}

	emptyAllOf := validSubschema()
	emptyAllOf["allOf"] = []interface{}{}

	for _, sub := range []map[string]interface{}{noAllOf, wrongRef, emptyAllOf} {
		d := Def{
			"$schema": DapSchemaMetaURI,
			"title":   "BrokenDap",
			"memo":    sub,
		}
		res := CompileDapSchema(d)
		assert.False(t, res.Valid)
		assert.Equal(t, CodeInvalidSubschemaInheritance, res.Code)
		assert.Equal(t, "memo", res.Keyword)
	}
}

// TestSubSchemaRelations will find relation fields in sorted order
func TestSubSchemaRelations(t *testing.T) {
	d := validDapSchema()
	assert.Equal(t, []string{"toUser"}, SubSchemaRelations(d, "contact"))
	assert.Nil(t, SubSchemaRelations(d, "profile"))
	assert.Nil(t, SubSchemaRelations(d, "missing"))
	assert.Nil(t, SubSchemaRelations(d, "title"))

	relations := SchemaRelations(d)
	require.Len(t, relations, 1)
	assert.Equal(t, []string{"toUser"}, relations["contact"])
}

// TestPrimaryKeyFields will read composite key declarations
func TestPrimaryKeyFields(t *testing.T) {
	d := validDapSchema()

	fields, composite := PrimaryKeyFields(d, "contact")
	assert.True(t, composite)
	assert.Equal(t, []string{"toUser"}, fields)

	_, composite = PrimaryKeyFields(d, "profile")
	assert.False(t, composite)

	_, composite = PrimaryKeyFields(d, "missing")
	assert.False(t, composite)
}

// TestSystemSchema will compile the embedded system schema and expose its
// property and definition names
func TestSystemSchema(t *testing.T) {
	s, err := CompileSystemSchema()
	require.NoError(t, err)
	require.NotNil(t, s)

	props := SystemProperties()
	for _, name := range []string{"subtx", "blockchainuser", "stheader", "stpacket", "dapcontract"} {
		assert.Contains(t, props, name)
	}

	defs := SystemDefinitions()
	for _, name := range []string{"meta", "dapobjectbase", "relation"} {
		assert.Contains(t, defs, name)
	}
}

// TestCompileSubSchema will resolve system refs from user subschemas
func TestCompileSubSchema(t *testing.T) {
	s, err := CompileSubSchema(validSubschema())
	require.NoError(t, err)
	require.NotNil(t, s)
}

// Package schema holds the platform consensus parameters, the embedded
// system schema, and the compiler that decides whether a user-authored
// DAP schema may be registered.
package schema

// Def is a JSON-Schema-compatible schema document
type Def = map[string]interface{}

// Canonical schema URIs
const (
	// DapSchemaMetaURI is the required $schema value of every DAP schema
	DapSchemaMetaURI = "http://dash.org/schemas/dapschema"

	// SysSchemaURI is the $id of the embedded system schema
	SysSchemaURI = "http://dash.org/schemas/sys"

	// DapObjectBaseRef must be the first allOf entry of every subschema
	DapObjectBaseRef = "http://dash.org/schemas/sys#/definitions/dapobjectbase"

	// RelationRef marks a subschema property as a relation field
	RelationRef = "http://dash.org/schemas/sys#/definitions/relation"
)

// Naming and size bounds for DAP schema definitions
const (
	MinTitleLength = 3
	MaxTitleLength = 24

	MinSubschemaNameLength = 3
	MaxSubschemaNameLength = 24

	// Key counts include the $schema and title keys
	MinKeyCount = 3
	MaxKeyCount = 1002
)

// ReservedKeywords may never be used as subschema names, in addition to
// the system schema's property and definition names
var ReservedKeywords = []string{"type"}

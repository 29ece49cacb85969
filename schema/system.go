package schema

import (
	_ "embed"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed system.json
var systemJSON []byte

var system Def

func init() {
	if err := json.Unmarshal(systemJSON, &system); err != nil {
		panic(errors.Wrap(err, "system schema is not valid JSON"))
	}
}

// System returns the embedded system schema document
func System() Def {
	return system
}

// SystemProperties returns the top-level property names of the system schema
func SystemProperties() []string {
	return mapKeys(system["properties"])
}

// SystemDefinitions returns the definition names of the system schema
func SystemDefinitions() []string {
	return mapKeys(system["definitions"])
}

func mapKeys(v interface{}) []string {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// CompileSystemSchema compiles the system schema into a reusable structural
// validator
func CompileSystemSchema() (*gojsonschema.Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(system))
	if err != nil {
		return nil, errors.Wrap(err, "compiling system schema")
	}
	return s, nil
}

// CompileSubSchema compiles one DAP subschema with the system schema
// available for cross-document $ref resolution
func CompileSubSchema(sub map[string]interface{}) (*gojsonschema.Schema, error) {
	sl := gojsonschema.NewSchemaLoader()
	if err := sl.AddSchemas(gojsonschema.NewGoLoader(system)); err != nil {
		return nil, errors.Wrap(err, "adding system schema")
	}
	s, err := sl.Compile(gojsonschema.NewGoLoader(sub))
	if err != nil {
		return nil, errors.Wrap(err, "compiling subschema")
	}
	return s, nil
}

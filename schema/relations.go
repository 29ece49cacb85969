package schema

import "sort"

// SubSchema returns the named subschema of a DAP schema, or nil
func SubSchema(dapSchema Def, name string) map[string]interface{} {
	if name == "$schema" || name == "title" {
		return nil
	}
	sub, _ := dapSchema[name].(map[string]interface{})
	return sub
}

// SubSchemaRelations returns the relation field names declared by one
// subschema, in sorted order
func SubSchemaRelations(dapSchema Def, name string) []string {
	sub := SubSchema(dapSchema, name)
	if sub == nil {
		return nil
	}

	props, _ := sub["properties"].(map[string]interface{})
	var relations []string
	for propName, prop := range props {
		propMap, isMap := prop.(map[string]interface{})
		if !isMap {
			continue
		}
		if ref, _ := propMap["$ref"].(string); ref == RelationRef {
			relations = append(relations, propName)
		}
	}
	sort.Strings(relations)
	return relations
}

// SchemaRelations maps every subschema name to its relation field names,
// omitting subschemas without relations
func SchemaRelations(dapSchema Def) map[string][]string {
	relations := make(map[string][]string)
	for keyword := range dapSchema {
		if keyword == "$schema" || keyword == "title" {
			continue
		}
		if fields := SubSchemaRelations(dapSchema, keyword); len(fields) > 0 {
			relations[keyword] = fields
		}
	}
	return relations
}

// PrimaryKeyFields returns the declared composite-primary-key field names
// for a subschema in declared order, and whether a composite key is
// declared at all
func PrimaryKeyFields(dapSchema Def, name string) ([]string, bool) {
	sub := SubSchema(dapSchema, name)
	if sub == nil {
		return nil, false
	}

	pk, _ := sub["primaryKey"].(map[string]interface{})
	if pk == nil {
		return nil, false
	}
	if composite, _ := pk["composite"].(bool); !composite {
		return nil, false
	}

	includes, _ := pk["includes"].([]interface{})
	fields := make([]string, 0, len(includes))
	for _, inc := range includes {
		if field, isString := inc.(string); isString {
			fields = append(fields, field)
		}
	}
	return fields, true
}

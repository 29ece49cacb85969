package schema

import (
	"regexp"
	"sort"
)

// Code identifies the first rule a schema definition violated
type Code int

// Schema definition rule codes
const (
	CodeOK Code = iota
	CodeInvalidMetaschema
	CodeInvalidSchemaTitle
	CodeInvalidSubschemaCount
	CodeInvalidSubschemaName
	CodeReservedSubschemaName
	CodeInvalidSubschemaInheritance
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeInvalidMetaschema:
		return "invalid metaschema"
	case CodeInvalidSchemaTitle:
		return "invalid schema title"
	case CodeInvalidSubschemaCount:
		return "invalid subschema count"
	case CodeInvalidSubschemaName:
		return "invalid subschema name"
	case CodeReservedSubschemaName:
		return "reserved subschema name"
	case CodeInvalidSubschemaInheritance:
		return "invalid subschema inheritance"
	}
	return "unknown"
}

// Result is the outcome of compiling a DAP schema definition
type Result struct {
	Valid   bool
	Code    Code
	Keyword string
	Message string
}

func ok() *Result {
	return &Result{Valid: true, Code: CodeOK}
}

func fail(code Code, keyword, message string) *Result {
	return &Result{Code: code, Keyword: keyword, Message: message}
}

var subschemaNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// CompileDapSchema validates a candidate DAP schema definition against the
// platform's structural and naming rules, failing fast on the first
// violation. It has no side effects.
func CompileDapSchema(dapSchema Def) *Result {
	if dapSchema == nil {
		return fail(CodeInvalidMetaschema, "$schema", "schema definition missing")
	}

	if uri, _ := dapSchema["$schema"].(string); uri != DapSchemaMetaURI {
		return fail(CodeInvalidMetaschema, "$schema", "unexpected meta schema URI")
	}

	title, isString := dapSchema["title"].(string)
	if !isString || len(title) < MinTitleLength || len(title) > MaxTitleLength {
		return fail(CodeInvalidSchemaTitle, "title", "title must be a string of 3-24 chars")
	}

	if len(dapSchema) < MinKeyCount || len(dapSchema) > MaxKeyCount {
		return fail(CodeInvalidSubschemaCount, "title", "schema must declare 1-1000 subschemas")
	}

	keywords := make([]string, 0, len(dapSchema))
	for keyword := range dapSchema {
		if keyword == "$schema" || keyword == "title" {
			continue
		}
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	for _, keyword := range keywords {
		if res := checkSubschemaName(keyword); !res.Valid {
			return res
		}
		if res := checkSubschemaInheritance(keyword, dapSchema[keyword]); !res.Valid {
			return res
		}
	}

	// structural well-formedness of each subschema, delegated to the
	// JSON-Schema engine
	for _, keyword := range keywords {
		sub, isMap := dapSchema[keyword].(map[string]interface{})
		if !isMap {
			return fail(CodeInvalidMetaschema, keyword, "subschema is not an object")
		}
		if _, err := CompileSubSchema(sub); err != nil {
			return fail(CodeInvalidMetaschema, keyword, err.Error())
		}
	}

	return ok()
}

func checkSubschemaName(keyword string) *Result {
	if len(keyword) < MinSubschemaNameLength || len(keyword) > MaxSubschemaNameLength {
		return fail(CodeInvalidSubschemaName, keyword, "invalid name length")
	}

	if !subschemaNamePattern.MatchString(keyword) {
		return fail(CodeInvalidSubschemaName, keyword, "disallowed name characters")
	}

	for _, reserved := range ReservedKeywords {
		if keyword == reserved {
			return fail(CodeReservedSubschemaName, keyword, "reserved platform keyword")
		}
	}

	for _, name := range SystemProperties() {
		if keyword == name {
			return fail(CodeReservedSubschemaName, keyword, "reserved system object keyword")
		}
	}

	for _, name := range SystemDefinitions() {
		if keyword == name {
			return fail(CodeReservedSubschemaName, keyword, "reserved system definition keyword")
		}
	}

	return ok()
}

func checkSubschemaInheritance(keyword string, sub interface{}) *Result {
	subMap, isMap := sub.(map[string]interface{})
	if !isMap {
		return fail(CodeInvalidSubschemaInheritance, keyword, "subschema inheritance missing")
	}

	allOf, hasAllOf := subMap["allOf"].([]interface{})
	if !hasAllOf || len(allOf) == 0 {
		return fail(CodeInvalidSubschemaInheritance, keyword, "subschema inheritance missing")
	}

	first, isMap := allOf[0].(map[string]interface{})
	if !isMap {
		return fail(CodeInvalidSubschemaInheritance, keyword, "subschema inheritance invalid")
	}

	if ref, _ := first["$ref"].(string); ref != DapObjectBaseRef {
		return fail(CodeInvalidSubschemaInheritance, keyword, "subschema inheritance invalid")
	}

	return ok()
}

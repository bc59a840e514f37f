package reconcile

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const analysisSchemaJSON = `{
  "type": "object",
  "required": ["totalPages", "documents"],
  "properties": {
    "totalPages": {"type": "integer"},
    "documents": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["startPage", "endPage"],
        "properties": {
          "startPage": {"type": "integer"},
          "endPage": {"type": "integer"}
        }
      }
    }
  }
}`

const singleSchemaJSON = `{"type": "object"}`

const boundarySchemaJSON = `{
  "type": "object",
  "required": ["totalPages", "totalDocuments", "documentBoundaries"],
  "properties": {
    "totalPages": {"type": "integer"},
    "totalDocuments": {"type": "integer"},
    "documentBoundaries": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["startPage"],
        "properties": {
          "documentNumber": {"type": "integer"},
          "startPage": {"type": "integer"}
        }
      }
    }
  }
}`

var (
	analysisSchema = mustCompile("analysis.json", analysisSchemaJSON)
	singleSchema   = mustCompile("single.json", singleSchemaJSON)
	boundarySchema = mustCompile("boundaries.json", boundarySchemaJSON)
)

func mustCompile(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

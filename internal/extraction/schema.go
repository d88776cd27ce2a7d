package extraction

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchemaJSON describes the shape every extraction response must have.
// Field types are deliberately loose; value level checks happen in Candidates.
const responseSchemaJSON = `{
  "type": "object",
  "required": ["accounts"],
  "properties": {
    "accounts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "account_name": {"type": ["string", "null"]},
          "account_number_partial": {"type": ["string", "number", "null"]},
          "currency": {"type": ["string", "null"]},
          "transactions": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "properties": {
                "date": {"type": ["string", "null"]},
                "description": {"type": ["string", "null"]},
                "amount": {"type": ["number", "string", "null"]},
                "type": {"type": ["string", "null"]}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	responseSchema *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("extraction.json", strings.NewReader(responseSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		responseSchema, schemaErr = compiler.Compile("extraction.json")
	})
	return responseSchema, schemaErr
}

// validateShape checks a decoded JSON value against the response schema.
func validateShape(v any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("validateShape: compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("validateShape: %w", err)
	}
	return nil
}

package checkpoint

import (
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// recordSchema is the JSON Schema for the five documented fields of a
// Checkpoint record (spec.md §4.B). Unknown fields (such as written_at, or
// any field a future version adds) are intentionally left unconstrained so
// that older readers never reject a newer writer's output.
const recordSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["version", "file_dev", "file_ino", "generation", "committed_offset"],
	"properties": {
		"version": {"type": "integer", "minimum": 0},
		"file_dev": {"type": "integer", "minimum": 0},
		"file_ino": {"type": "integer", "minimum": 0},
		"generation": {"type": "integer", "minimum": 0},
		"committed_offset": {"type": "integer", "minimum": 0}
	}
}`

var (
	schemaOnce    sync.Once
	compiledOnce  *jsonschema.Schema
	schemaCompErr error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledOnce, schemaCompErr = compiler.Compile([]byte(recordSchema))
	})
	return compiledOnce, schemaCompErr
}

// validateRecord checks raw checkpoint bytes against recordSchema, returning
// an error if the record violates it. The error message is a fixed summary;
// it does not list the individual violations.
func validateRecord(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return &schemaViolation{errors: result.Errors}
}

type schemaViolation struct {
	errors interface{}
}

func (v *schemaViolation) Error() string {
	return "checkpoint record failed schema validation"
}

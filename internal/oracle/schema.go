package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema constrains the sanitized oracle output: every field is a
// string, payment_total looks like an amount, and confidence is one of the
// three advisory levels. Nothing is required here; completeness is the
// pipeline's call, not the schema's.
const recordSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "full_name": {"type": "string"},
    "simplified_name": {"type": "string"},
    "currency": {"type": "string"},
    "payment_total": {"type": "string", "pattern": "^[\\d,]+\\.?\\d*$"},
    "confidence": {"type": "string", "enum": ["HIGH", "MEDIUM", "LOW"]}
  }
}`

var compiledRecordSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("record.json", bytes.NewReader([]byte(recordSchema))); err != nil {
		panic(err)
	}
	return c.MustCompile("record.json")
}

func validateRecordJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := compiledRecordSchema.Validate(v); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

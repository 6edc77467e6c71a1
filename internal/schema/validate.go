package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// recordSchema pins the wire contract: all twelve content fields present as
// string or null, identity keys as strings, nothing else.
const recordSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": ["string", "null"]},
    "rate": {"type": ["string", "null"]},
    "rate_type": {"type": ["string", "null"]},
    "sum": {"type": ["string", "null"]},
    "term": {"type": ["string", "null"]},
    "payment_type": {"type": ["string", "null"]},
    "commission": {"type": ["string", "null"]},
    "early_repayment": {"type": ["string", "null"]},
    "insurance": {"type": ["string", "null"]},
    "currency": {"type": ["string", "null"]},
    "additional": {"type": ["string", "null"]},
    "files": {"type": ["string", "null"]},
    "bank": {"type": "string"},
    "product": {"type": "string"}
  },
  "required": [
    "name", "rate", "rate_type", "sum", "term", "payment_type",
    "commission", "early_repayment", "insurance", "currency",
    "additional", "files", "bank", "product"
  ],
  "additionalProperties": false
}`

var compiledRecordSchema = jsonschema.MustCompileString("record.json", recordSchema)

// Validate checks a finalized record against the fixed wire schema. It is the
// last gate before a record reaches the persistence and report collaborators;
// callers downgrade a failing record to Empty.
func Validate(r Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := compiledRecordSchema.Validate(v); err != nil {
		return fmt.Errorf("record shape: %w", err)
	}
	return nil
}

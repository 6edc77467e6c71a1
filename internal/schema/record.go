package schema

import (
	"bytes"
	"encoding/json"
)

// FieldKeys lists the content fields of a record in canonical output order.
// The identity keys "bank" and "product" always follow them.
var FieldKeys = []string{
	"name",
	"rate",
	"rate_type",
	"sum",
	"term",
	"payment_type",
	"commission",
	"early_repayment",
	"insurance",
	"currency",
	"additional",
	"files",
}

// Record is one extracted product. The key set is fixed: every field key is
// always present, with nil standing for "not found". Absence is represented,
// never omitted.
type Record map[string]any

// Empty returns a schema-complete record with all content fields nil. It is
// the canonical substitute whenever any stage fails for a target.
func Empty(bank, product string) Record {
	r := make(Record, len(FieldKeys)+2)
	for _, k := range FieldKeys {
		r[k] = nil
	}
	r["bank"] = bank
	r["product"] = product
	return r
}

// Merge copies the known field keys out of a parsed model response into a
// fresh schema-complete record. Unknown keys are dropped so the key set stays
// invariant no matter what the model emitted.
func Merge(parsed map[string]any, bank, product string) Record {
	r := Empty(bank, product)
	for _, k := range FieldKeys {
		if v, ok := parsed[k]; ok {
			r[k] = v
		}
	}
	return r
}

// Bank returns the record's bank identity.
func (r Record) Bank() string {
	s, _ := r["bank"].(string)
	return s
}

// Product returns the record's product identity.
func (r Record) Product() string {
	s, _ := r["product"].(string)
	return s
}

// MarshalJSON serializes the record with the field keys in canonical order and
// the identity keys last, so the wire shape is stable across runs.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	keys := make([]string, 0, len(FieldKeys)+2)
	keys = append(keys, FieldKeys...)
	keys = append(keys, "bank", "product")
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

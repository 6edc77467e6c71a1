package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEmpty_KeySetInvariant(t *testing.T) {
	r := Empty("МТБанк", "Проще простого")
	if len(r) != len(FieldKeys)+2 {
		t.Fatalf("expected %d keys, got %d", len(FieldKeys)+2, len(r))
	}
	for _, k := range FieldKeys {
		v, ok := r[k]
		if !ok {
			t.Fatalf("missing key %q", k)
		}
		if v != nil {
			t.Fatalf("key %q should be nil, got %v", k, v)
		}
	}
	if r.Bank() != "МТБанк" || r.Product() != "Проще простого" {
		t.Fatalf("identity not carried: %q / %q", r.Bank(), r.Product())
	}
}

func TestMerge_DropsUnknownKeysAndFillsMissing(t *testing.T) {
	parsed := map[string]any{
		"rate":    "12%",
		"type":    "credit card", // not part of the schema
		"comment": "ignored",
	}
	r := Merge(parsed, "Сбер", "SberCard")
	if r["rate"] != "12%" {
		t.Fatalf("rate lost: %v", r["rate"])
	}
	if _, ok := r["type"]; ok {
		t.Fatal("unknown key leaked into record")
	}
	if v, ok := r["sum"]; !ok || v != nil {
		t.Fatalf("missing field not represented as nil: %v %v", v, ok)
	}
}

func TestMarshalJSON_CanonicalOrder(t *testing.T) {
	r := Empty("ВТБ", "Старт")
	r["rate"] = "12%"
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	want := `{"name":null,"rate":"12%","rate_type":null,"sum":null,"term":null,` +
		`"payment_type":null,"commission":null,"early_repayment":null,` +
		`"insurance":null,"currency":null,"additional":null,"files":null,` +
		`"bank":"ВТБ","product":"Старт"}`
	if s != want {
		t.Fatalf("wire shape drifted:\n got: %s\nwant: %s", s, want)
	}
	if !strings.HasPrefix(s, `{"name"`) {
		t.Fatalf("name must come first: %s", s)
	}
}

func TestValidate_AcceptsEmptyAndRejectsNumbers(t *testing.T) {
	r := Empty("БНБ", "Мэтч")
	if err := Validate(r); err != nil {
		t.Fatalf("empty record must validate: %v", err)
	}
	r["rate"] = float64(12)
	if err := Validate(r); err == nil {
		t.Fatal("numeric field must fail validation before coercion")
	}
	CoerceScalars(r)
	if err := Validate(r); err != nil {
		t.Fatalf("coerced record must validate: %v", err)
	}
	if r["rate"] != "12" {
		t.Fatalf("coerced rate: %v", r["rate"])
	}
}

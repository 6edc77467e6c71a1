package schema

import "testing"

func rangeRecord(min, max any) Record {
	r := Empty("bank", "product")
	m := map[string]any{}
	if min != nil {
		m["min"] = min
	} else {
		m["min"] = nil
	}
	if max != nil {
		m["max"] = max
	} else {
		m["max"] = nil
	}
	r["rate"] = m
	return r
}

func TestCollapseRanges(t *testing.T) {
	cases := []struct {
		name string
		min  any
		max  any
		want any
	}{
		{"both ends", float64(5), float64(12), "5 – 12"},
		{"min only", float64(5), nil, float64(5)},
		{"max only", nil, float64(12), float64(12)},
		{"empty range", nil, nil, nil},
		{"string ends", "5%", "12%", "5% – 12%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rangeRecord(tc.min, tc.max)
			CollapseRanges(r)
			if r["rate"] != tc.want {
				t.Fatalf("got %v (%T), want %v", r["rate"], r["rate"], tc.want)
			}
		})
	}
}

func TestCollapseRanges_LeavesScalarsAndForeignObjects(t *testing.T) {
	r := Empty("bank", "product")
	r["rate"] = "12%"
	r["sum"] = map[string]any{"amount": float64(1000), "unit": "BYN"}
	CollapseRanges(r)
	if r["rate"] != "12%" {
		t.Fatalf("scalar touched: %v", r["rate"])
	}
	if _, ok := r["sum"].(map[string]any); !ok {
		t.Fatalf("non-range object collapsed: %v", r["sum"])
	}
}

func TestCoerceScalars(t *testing.T) {
	r := Empty("bank", "product")
	r["rate"] = float64(12.5)
	r["sum"] = float64(7000)
	r["insurance"] = true
	r["additional"] = []any{"a", "b"}
	CoerceScalars(r)
	if r["rate"] != "12.5" {
		t.Fatalf("rate: %v", r["rate"])
	}
	if r["sum"] != "7000" {
		t.Fatalf("sum: %v", r["sum"])
	}
	if r["insurance"] != "true" {
		t.Fatalf("insurance: %v", r["insurance"])
	}
	if r["additional"] != `["a","b"]` {
		t.Fatalf("additional: %v", r["additional"])
	}
	if r["term"] != nil {
		t.Fatalf("nil must stay nil: %v", r["term"])
	}
}

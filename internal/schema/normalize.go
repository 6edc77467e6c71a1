package schema

import (
	"encoding/json"
	"fmt"
)

// CollapseRanges rewrites every field whose value is a {min, max} object into
// a single display value: both ends present renders "<min> – <max>", a single
// end is used as-is, and an empty range stays nil.
func CollapseRanges(r Record) {
	for _, k := range FieldKeys {
		m, ok := r[k].(map[string]any)
		if !ok {
			continue
		}
		if !isRange(m) {
			continue
		}
		min, hasMin := m["min"]
		max, hasMax := m["max"]
		hasMin = hasMin && min != nil
		hasMax = hasMax && max != nil
		switch {
		case hasMin && hasMax:
			r[k] = fmt.Sprintf("%v – %v", scalar(min), scalar(max))
		case hasMin:
			r[k] = min
		case hasMax:
			r[k] = max
		default:
			r[k] = nil
		}
	}
}

func isRange(m map[string]any) bool {
	for k := range m {
		if k != "min" && k != "max" {
			return false
		}
	}
	return len(m) > 0
}

// CoerceScalars flattens whatever the model put into the content fields down
// to string-or-nil, the only two shapes the report and the wire format carry.
// Numbers keep their shortest decimal form, nested structures are re-encoded
// as compact JSON.
func CoerceScalars(r Record) {
	for _, k := range FieldKeys {
		v := r[k]
		if v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			// already canonical
		case float64, bool:
			r[k] = scalar(t)
		case json.Number:
			r[k] = t.String()
		default:
			b, err := json.Marshal(t)
			if err != nil {
				r[k] = nil
				continue
			}
			r[k] = string(b)
		}
	}
}

func scalar(v any) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}

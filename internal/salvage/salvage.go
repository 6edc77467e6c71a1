// Package salvage repairs near-valid JSON emitted by the extraction model.
// The model is instructed to answer with a single JSON object but in practice
// wraps it in code fences, appends prose, or drops the last characters; this
// package applies a short ordered list of syntactic repairs before giving up.
package salvage

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrUnparseable is returned when no repair strategy yields valid JSON.
var ErrUnparseable = errors.New("salvage: response is not JSON after all repairs")

// ErrAllEmpty marks the soft failure distinct from a hard parse failure:
// valid JSON whose every field is null or the literal string "null".
var ErrAllEmpty = errors.New("salvage: parsed object carries no values")

var (
	fenceRe         = regexp.MustCompile("```(?:json)?\n?")
	trailingCommaRe = regexp.MustCompile(`,\s*}\s*$`)
)

// strategies are tried in order against the fence-stripped response; the
// first one whose output parses wins.
var strategies = []func(string) string{
	// as-is
	func(s string) string { return s },
	// cut everything after the last closing brace (trailing prose, partial
	// second object)
	func(s string) string {
		if i := strings.LastIndexByte(s, '}'); i >= 0 {
			return s[:i+1]
		}
		return s
	},
	// dangling comma before the final brace
	func(s string) string { return trailingCommaRe.ReplaceAllString(s, "}") },
}

// Parse extracts one JSON object from a raw model response. The legacy field
// name "summ" is renamed to "sum" when present. Returns ErrUnparseable when
// every strategy fails; a nil map is never returned alongside a nil error.
func Parse(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrUnparseable
	}
	stripped := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))
	for _, repair := range strategies {
		candidate := repair(stripped)
		var m map[string]any
		if err := json.Unmarshal([]byte(candidate), &m); err != nil {
			continue
		}
		if v, ok := m["summ"]; ok {
			if _, exists := m["sum"]; !exists {
				m["sum"] = v
			}
			delete(m, "summ")
		}
		return m, nil
	}
	return nil, ErrUnparseable
}

// AllEmpty reports whether a parsed object carries no usable value: every
// field is nil, an empty string, or the literal string "null". Falsy but
// meaningful scalars (0, false) count as data.
func AllEmpty(m map[string]any) bool {
	for _, v := range m {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}

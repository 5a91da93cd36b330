// Package record defines the raw snapshot record read from the archive and
// the single usability gate every downstream consumer shares. Records carry
// no fixed schema; accessors validate only the paths they are asked for and
// treat wrong-typed or absent fields as missing.
package record

import (
	"encoding/json"
	"fmt"
	"math"
)

// Record is one parsed archive line: a tree of nested mappings and lists.
// Unknown keys are ignored everywhere.
type Record map[string]any

// Parse decodes one archive line into a Record. Lines whose top level is not
// a JSON object are rejected here, before the gate ever sees them.
func Parse(line []byte) (Record, error) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("record is %T, not an object", v)
	}
	return Record(m), nil
}

// Get walks the nested mapping along path and returns the value at the end.
// Any missing key or non-mapping intermediate yields (nil, false).
func (r Record) Get(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Map returns the mapping at path, or (nil, false) if the path is missing or
// the value is not a mapping.
func (r Record) Map(path ...string) (map[string]any, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// Slice returns the list at path, or (nil, false).
func (r Record) Slice(path ...string) ([]any, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

// Str returns the string at path, or ("", false).
func (r Record) Str(path ...string) (string, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns the finite float at path. Non-numeric, NaN and infinite
// values all read as missing; a true zero reads as (0, true).
func (r Record) Float(path ...string) (float64, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

// Int returns the value at path truncated to int64, missing unless the
// underlying value is a finite number.
func (r Record) Int(path ...string) (int64, bool) {
	f, ok := r.Float(path...)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Bool returns the boolean at path, or (false, false).
func (r Record) Bool(path ...string) (bool, bool) {
	v, ok := r.Get(path...)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Symbol returns the record's instrument identifier, or "" when absent.
func (r Record) Symbol() string {
	s, _ := r.Str("symbol")
	return s
}

// AsFloat coerces an arbitrary decoded JSON value to a finite float64.
// json.Unmarshal into any always yields float64 for numbers; the integer
// cases cover records built programmatically in tests and tools.
func AsFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

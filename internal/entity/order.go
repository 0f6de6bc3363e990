package entity

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawOrder is an order object as the upstream returned it. Numbers are
// expected to be decoded as json.Number.
//
// Every accessor tolerates a missing key or a value of the wrong type and
// reports it as absent, so lookups can be chained across nested objects.
type RawOrder map[string]any

// Object returns the nested object stored under key, or nil.
func (o RawOrder) Object(key string) RawOrder {
	switch v := o[key].(type) {
	case map[string]any:
		return RawOrder(v)
	case RawOrder:
		return v
	default:
		return nil
	}
}

// String returns the value under key as a string. JSON numbers are rendered
// by their literal text.
func (o RawOrder) String(key string) *string {
	return stringValue(o[key])
}

// Int returns the value under key as an integer. Integral numbers and
// numeric strings are accepted.
func (o RawOrder) Int(key string) *int64 {
	switch v := o[key].(type) {
	case json.Number:
		return parseInt(v.String())
	case float64:
		return integral(v)
	case string:
		return parseInt(strings.TrimSpace(v))
	default:
		return nil
	}
}

// NoteAttributes folds the order's note_attributes into a lookup table.
func (o RawOrder) NoteAttributes() NoteAttributes {
	items, _ := o["note_attributes"].([]any)
	attrs := make(NoteAttributes, len(items))
	for _, item := range items {
		pair, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, ok := pair["name"].(string)
		if !ok {
			continue
		}
		// later entries overwrite earlier ones, including with an absent value
		attrs[name] = stringValue(pair["value"])
	}
	return attrs
}

// NoteAttributes maps note attribute names to their values.
type NoteAttributes map[string]*string

// Get returns the value recorded for name, or nil.
func (n NoteAttributes) Get(name string) *string {
	return n[name]
}

func stringValue(v any) *string {
	switch s := v.(type) {
	case string:
		return &s
	case json.Number:
		str := s.String()
		return &str
	default:
		return nil
	}
}

func parseInt(s string) *int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return integral(f)
	}
	return nil
}

func integral(f float64) *int64 {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return nil
	}
	n := int64(f)
	return &n
}

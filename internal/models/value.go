// ABOUTME: Tagged field value holding either a scalar or a set of strings
// ABOUTME: Serialises as a JSON string (scalar) or JSON array (set)
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is the content of one persona field. Kind decides which member is meaningful.
type Value struct {
	Kind  FieldKind
	Text  string
	Items []string
}

// ScalarValue builds a scalar value
func ScalarValue(text string) Value {
	return Value{Kind: KindScalar, Text: text}
}

// SetValue builds a set value, trimming items and dropping blanks and exact duplicates
func SetValue(items ...string) Value {
	return Value{Kind: KindSet, Items: normalizeItems(items)}
}

func normalizeItems(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

// Equal compares values. Sets compare as sets, ignoring order.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindScalar:
		return v.Text == o.Text
	case KindSet:
		if len(v.Items) != len(o.Items) {
			return false
		}
		have := make(map[string]bool, len(v.Items))
		for _, item := range v.Items {
			have[item] = true
		}
		for _, item := range o.Items {
			if !have[item] {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("models: unhandled field kind %v", v.Kind))
	}
}

// IsEmpty reports whether the value carries nothing
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindScalar:
		return v.Text == ""
	case KindSet:
		return len(v.Items) == 0
	default:
		return true
	}
}

// String renders the value for tables and logs
func (v Value) String() string {
	if v.Kind == KindSet {
		return strings.Join(v.Items, ", ")
	}
	return v.Text
}

// Clone returns a copy that shares no backing array with v
func (v Value) Clone() Value {
	c := v
	if v.Items != nil {
		c.Items = append([]string(nil), v.Items...)
	}
	return c
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindScalar:
		return json.Marshal(v.Text)
	case KindSet:
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string (scalar) or an array of strings (set)
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("value is required")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = ScalarValue(s)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("set values must be strings: %w", err)
		}
		*v = SetValue(items...)
		return nil
	default:
		return fmt.Errorf("value must be a string or an array of strings")
	}
}

// MarshalYAML renders the value as a YAML scalar or sequence
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case KindScalar:
		return v.Text, nil
	case KindSet:
		if v.Items == nil {
			return []string{}, nil
		}
		return v.Items, nil
	default:
		return nil, nil
	}
}

// DecodeValue parses stored JSON for a field whose kind is known
func DecodeValue(kind FieldKind, data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	if v.Kind != kind {
		return Value{}, fmt.Errorf("%w: stored %s, field is %s", ErrKindMismatch, v.Kind, kind)
	}
	return v, nil
}

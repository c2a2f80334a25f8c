package schema

import (
	"fmt"
	"sort"
)

// ToWireData encodes the present submitted fields. Absent fields are omitted.
func ToWireData(o Object) map[string]any {
	return data(o, false)
}

// ToEnvelope wraps ToWireData with the type name and protocol version.
func ToEnvelope(o Object) map[string]any {
	return envelope(o, false)
}

// ReplyData encodes submitted and returned fields, recursing into nested
// objects the same way. It is the shape the service uses for results.
func ReplyData(o Object) map[string]any {
	return data(o, true)
}

// ReplyEnvelope wraps ReplyData.
func ReplyEnvelope(o Object) map[string]any {
	return envelope(o, true)
}

func envelope(o Object, full bool) map[string]any {
	return map[string]any{
		NameKey:    o.Schema().name,
		VersionKey: Version,
		DataKey:    data(o, full),
	}
}

func data(o Object, full bool) map[string]any {
	s := o.Schema()
	out := map[string]any{}
	groups := [][]Field{s.submitted}
	if full {
		groups = append(groups, s.returned)
	}
	for _, group := range groups {
		for _, f := range group {
			if _, done := out[f.Name]; done {
				continue
			}
			if v := f.get(o); v != nil {
				out[f.Name] = encode(v, full)
			}
		}
	}
	return out
}

// LoadFromWire assigns reply data to o. Keys are processed in sorted order.
// A value that decodes to nil leaves the field untouched. Keys that match no
// submitted or returned field fail unless the schema is lenient.
func LoadFromWire(o Object, data map[string]any) error {
	s := o.Schema()
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !s.wire[k] {
			if s.lenient {
				continue
			}
			return &FieldError{Type: s.name, Field: k, Err: ErrUnknownField}
		}
		f := s.byName[k]
		raw := data[k]
		var v any
		if str, ok := raw.(string); ok && f.raw {
			v = str
		} else {
			var err error
			v, err = Decode(raw, s.nested)
			if err != nil {
				return &FieldError{Type: s.name, Field: k, Err: err}
			}
		}
		if v == nil {
			continue
		}
		if err := f.set(o, v); err != nil {
			return &FieldError{Type: s.name, Field: k, Err: fmt.Errorf("%w: %v", ErrInvalidValue, err)}
		}
	}
	return nil
}

package schema

import (
	"fmt"
	"slices"
)

// Resolve turns a tagged mapping into the registered type it names. The name
// must appear in allowed. TimeValue has no zero form and is built straight
// from its data; every other type is constructed empty and loaded.
func Resolve(tagged map[string]any, allowed []string) (any, error) {
	name, _ := tagged[NameKey].(string)
	if name == "" || !slices.Contains(allowed, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNestedType, name)
	}
	payload, err := dataOf(tagged)
	if err != nil {
		return nil, err
	}
	if name == TimeValueType {
		return timeValueFromData(payload)
	}
	ctor, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", ErrUnknownNestedType, name)
	}
	o := ctor()
	if err := LoadFromWire(o, payload); err != nil {
		return nil, err
	}
	return o, nil
}

func dataOf(tagged map[string]any) (map[string]any, error) {
	raw, ok := tagged[DataKey]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s of %v must be an object, got %T", DataKey, tagged[NameKey], raw)
	}
	return m, nil
}

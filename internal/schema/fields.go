package schema

import (
	"reflect"
	"time"

	"swiftapi/internal/domain"
)

// Field describes one named attribute of an object: how to read its current
// value (nil when absent) and how to assign a coerced value to it.
type Field struct {
	Name string
	get  func(Object) any
	set  func(Object, any) error
	// raw fields receive inbound strings without scalar classification.
	raw bool
}

// Raw marks a field so inbound strings are assigned verbatim.
func (f Field) Raw() Field {
	f.raw = true
	return f
}

// Func builds a field from explicit accessors. get returns nil when the value
// is absent; set receives nil to clear it.
func Func[T Object](name string, get func(T) any, set func(T, any) error) Field {
	return Field{
		Name: name,
		get:  func(o Object) any { return get(o.(T)) },
		set:  func(o Object, v any) error { return set(o.(T), v) },
	}
}

// String binds a string attribute; the empty string is absent.
func String[T Object](name string, p func(T) *string) Field {
	return Func(name,
		func(o T) any {
			if s := *p(o); s != "" {
				return s
			}
			return nil
		},
		func(o T, v any) error {
			s, err := AsString(v)
			if err != nil {
				return err
			}
			*p(o) = s
			return nil
		}).Raw()
}

// Float binds an optional float attribute.
func Float[T Object](name string, p func(T) **float64) Field {
	return optional(name, p, AsFloat)
}

// Int binds an optional int attribute.
func Int[T Object](name string, p func(T) **int) Field {
	return optional(name, p, AsInt)
}

// Bool binds an optional bool attribute.
func Bool[T Object](name string, p func(T) **bool) Field {
	return optional(name, p, AsBool)
}

func optional[T Object, V any](name string, p func(T) **V, conv func(any) (V, error)) Field {
	return Func(name,
		func(o T) any {
			if v := *p(o); v != nil {
				return *v
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				*p(o) = nil
				return nil
			}
			x, err := conv(v)
			if err != nil {
				return err
			}
			*p(o) = &x
			return nil
		})
}

// Time binds an instant; the zero time is absent.
func Time[T Object](name string, p func(T) *time.Time) Field {
	return value(name, p, AsTime)
}

// Duration binds a duration; zero is absent.
func Duration[T Object](name string, p func(T) *time.Duration) Field {
	return value(name, p, AsDuration)
}

// TimeVal binds a mission-clock timestamp.
func TimeVal[T Object](name string, p func(T) *domain.TimeValue) Field {
	return value(name, p, AsTimeValue)
}

func value[T Object, V comparable](name string, p func(T) *V, conv func(any) (V, error)) Field {
	return Func(name,
		func(o T) any {
			var zero V
			if v := *p(o); v != zero {
				return v
			}
			return nil
		},
		func(o T, v any) error {
			if v == nil {
				var zero V
				*p(o) = zero
				return nil
			}
			x, err := conv(v)
			if err != nil {
				return err
			}
			*p(o) = x
			return nil
		})
}

// List binds a slice attribute. conv converts each decoded element; an
// empty slice is absent.
func List[T Object, E any](name string, p func(T) *[]E, conv func(any) (E, error)) Field {
	return Func(name,
		func(o T) any {
			s := *p(o)
			if len(s) == 0 {
				return nil
			}
			out := make([]any, len(s))
			for i, e := range s {
				out[i] = e
			}
			return out
		},
		func(o T, v any) error {
			if v == nil {
				*p(o) = nil
				return nil
			}
			if typed, ok := v.([]E); ok {
				*p(o) = append([]E(nil), typed...)
				return nil
			}
			items, ok := v.([]any)
			if !ok {
				// a lone value is a one-element list
				items = []any{v}
			}
			out := make([]E, 0, len(items))
			for _, item := range items {
				e, err := conv(item)
				if err != nil {
					return err
				}
				out = append(out, e)
			}
			*p(o) = out
			return nil
		})
}

// Nested binds a single nested object held by pointer.
func Nested[T Object, E Object](name string, p func(T) *E) Field {
	return Func(name,
		func(o T) any {
			e := *p(o)
			if isNil(e) {
				return nil
			}
			return e
		},
		func(o T, v any) error {
			if v == nil {
				var zero E
				*p(o) = zero
				return nil
			}
			e, err := As[E](v)
			if err != nil {
				return err
			}
			*p(o) = e
			return nil
		})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

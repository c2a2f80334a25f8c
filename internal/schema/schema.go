// Package schema maps typed objects to and from the service's wire form
// through per-type field tables.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Envelope keys and protocol version.
const (
	NameKey    = "api_name"
	VersionKey = "api_version"
	DataKey    = "api_data"
	Version    = "1.2"
)

var (
	ErrUnexpectedField   = errors.New("unexpected field")
	ErrUnknownField      = errors.New("unknown field in reply")
	ErrUnknownNestedType = errors.New("unrecognized nested type")
	ErrInvalidValue      = errors.New("invalid value")
)

// FieldError ties a failure to the type and field it came from.
type FieldError struct {
	Type  string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Type, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Object is implemented by every type with a declared schema.
type Object interface {
	Schema() *Schema
}

// Defaulter fills unset fields that have computed defaults. It runs after
// construction and again before validation, so it must only touch unset
// fields.
type Defaulter interface {
	Defaults()
}

// Schema is the field table of one wire type.
type Schema struct {
	name      string
	ctor      func() Object
	submitted []Field
	returned  []Field
	local     []Field
	nested    []string
	lenient   bool
	byName    map[string]Field
	wire      map[string]bool
	settable  map[string]bool
}

// Define declares a wire type and registers its constructor for nested
// resolution. Defining the same name twice panics.
func Define(name string, ctor func() Object) *Schema {
	s := &Schema{
		name:     name,
		ctor:     ctor,
		byName:   map[string]Field{},
		wire:     map[string]bool{},
		settable: map[string]bool{},
	}
	register(name, ctor)
	return s
}

// Submitted appends fields sent to the server. The first submitted field of a
// request type is its identity field and is skipped by positional binding.
func (s *Schema) Submitted(fields ...Field) *Schema {
	for _, f := range fields {
		s.submitted = append(s.submitted, f)
		s.add(f)
		s.wire[f.Name] = true
		s.settable[f.Name] = true
	}
	return s
}

// Returned appends fields the server may populate. A name already submitted
// keeps its submitted accessor.
func (s *Schema) Returned(fields ...Field) *Schema {
	for _, f := range fields {
		if existing, ok := s.byName[f.Name]; ok {
			f = existing
		}
		s.returned = append(s.returned, f)
		s.add(f)
		s.wire[f.Name] = true
	}
	return s
}

// Local appends fields that can be set by keyword but never travel.
func (s *Schema) Local(fields ...Field) *Schema {
	for _, f := range fields {
		s.local = append(s.local, f)
		s.add(f)
		s.settable[f.Name] = true
	}
	return s
}

// Nested lists the tagged types allowed inside replies to this type.
func (s *Schema) Nested(names ...string) *Schema {
	s.nested = append(s.nested, names...)
	return s
}

// Lenient makes reply loading drop keys that match no field.
func (s *Schema) Lenient() *Schema {
	s.lenient = true
	return s
}

func (s *Schema) add(f Field) {
	if _, ok := s.byName[f.Name]; !ok {
		s.byName[f.Name] = f
	}
}

func (s *Schema) Name() string { return s.name }

func (s *Schema) IsLenient() bool { return s.lenient }

func (s *Schema) NestedTypes() []string { return append([]string(nil), s.nested...) }

func (s *Schema) SubmittedNames() []string { return names(s.submitted) }

func (s *Schema) ReturnedNames() []string { return names(s.returned) }

func (s *Schema) LocalNames() []string { return names(s.local) }

// New returns a fresh zero instance of the type.
func (s *Schema) New() Object { return s.ctor() }

func names(fs []Field) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

// Values are keyword arguments for Construct and Set.
type Values map[string]any

// Construct assigns positional and keyword values. Positional values bind to
// the submitted fields after the identity field; keywords must name a
// submitted or local field. Every key is checked before anything is assigned.
func Construct(o Object, positional []any, kw Values) error {
	s := o.Schema()
	args := make(map[string]any, len(positional)+len(kw))
	if len(positional) > 0 {
		if len(positional) > len(s.submitted)-1 {
			return fmt.Errorf("%s takes at most %d positional values, got %d", s.name, len(s.submitted)-1, len(positional))
		}
		for i, v := range positional {
			args[s.submitted[i+1].Name] = v
		}
	}
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !s.settable[k] {
			return &FieldError{Type: s.name, Field: k, Err: ErrUnexpectedField}
		}
		if _, dup := args[k]; dup {
			return &FieldError{Type: s.name, Field: k, Err: fmt.Errorf("%w: given both positionally and by keyword", ErrUnexpectedField)}
		}
		args[k] = kw[k]
	}
	for _, group := range [][]Field{s.submitted, s.local} {
		for _, f := range group {
			v, ok := args[f.Name]
			if !ok {
				continue
			}
			delete(args, f.Name)
			if err := f.set(o, v); err != nil {
				return &FieldError{Type: s.name, Field: f.Name, Err: err}
			}
		}
	}
	if d, ok := o.(Defaulter); ok {
		d.Defaults()
	}
	return nil
}

// Set assigns one submitted or local field by name.
func Set(o Object, name string, v any) error {
	s := o.Schema()
	if !s.settable[name] {
		return &FieldError{Type: s.name, Field: name, Err: ErrUnexpectedField}
	}
	if err := s.byName[name].set(o, v); err != nil {
		return &FieldError{Type: s.name, Field: name, Err: err}
	}
	return nil
}

// Get reads any declared field; ok is false when it is absent.
func Get(o Object, name string) (any, bool) {
	f, found := o.Schema().byName[name]
	if !found {
		return nil, false
	}
	v := f.get(o)
	return v, v != nil
}

// Describe returns a short one-line identification of an object.
func Describe(o Object) string {
	s := o.Schema()
	parts := make([]string, 0, len(s.submitted))
	for _, f := range s.submitted {
		if v := f.get(o); v != nil {
			if _, nested := v.(Object); nested {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%v", f.Name, v))
		}
	}
	return fmt.Sprintf("%s(%s)", s.name, strings.Join(parts, ", "))
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Object{}
)

func register(name string, ctor func() Object) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("schema: type %s defined twice", name))
	}
	registry[name] = ctor
}

func lookup(name string) (func() Object, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	return ctor, ok
}

package schema

import (
	"fmt"
	"sort"
)

// Field declares one named State value.
type Field struct {
	Name string
	Type Type
	// Default seeds the field at the start of every run. A nil Default leaves
	// the field unset until a step writes it.
	Default any
}

// Schema is the ordered set of fields a State may hold.
// The zero Schema is open: every key and value is accepted.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a Schema, rejecting empty or duplicate names and defaults that
// do not satisfy their own type.
func New(fields ...Field) (Schema, error) {
	s := Schema{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	var errs []error
	for _, f := range fields {
		if f.Name == "" {
			errs = append(errs, &ValidationError{Reason: "field name is empty"})
			continue
		}
		if _, dup := s.index[f.Name]; dup {
			errs = append(errs, &ValidationError{Key: f.Name, Reason: "declared more than once"})
			continue
		}
		if f.Type == nil {
			f.Type = Any()
		}
		if f.Default != nil {
			if err := f.Type.Validate(f.Default); err != nil {
				errs = append(errs, &ValidationError{Key: f.Name, Reason: "default: " + err.Error(), Value: f.Default})
				continue
			}
		}
		s.index[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	if len(errs) > 0 {
		return Schema{}, &AggregateError{Errors: errs}
	}
	return s, nil
}

// MustNew is like New but panics on error. Intended for package-level schemas.
func MustNew(fields ...Field) Schema {
	s, err := New(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseTypeMap converts field names mapped to type strings into a Schema.
// Fields are ordered by name because maps carry no order.
// Example: {"quantity": "int", "tags": "[string]"}
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	names := make([]string, 0, len(typeMap))
	for name := range typeMap {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		t, err := ParseType(typeMap[name])
		if err != nil {
			return Schema{}, fmt.Errorf("field %s: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Type: t})
	}
	return New(fields...)
}

// IsOpen reports whether the schema declares no fields.
func (s Schema) IsOpen() bool { return len(s.fields) == 0 }

// Fields returns the declared fields in declaration order.
func (s Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Defaults returns the initial values for every field that has a default.
func (s Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// ValidateDelta checks a partial update: every key must be declared and every
// value must satisfy its field type. Missing fields are fine.
func (s Schema) ValidateDelta(delta map[string]any) error {
	if s.IsOpen() || len(delta) == 0 {
		return nil
	}

	keys := make([]string, 0, len(delta))
	for k := range delta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := delta[key]
		f, ok := s.Lookup(key)
		if !ok {
			errs = append(errs, &ValidationError{Key: key, Reason: "not declared in schema", Value: value})
			continue
		}
		if err := f.Type.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Validate checks a complete value map: like ValidateDelta, and additionally
// every listed field must be present.
func (s Schema) Validate(data map[string]any, required ...string) error {
	var errs []error
	if err := s.ValidateDelta(data); err != nil {
		errs = append(errs, ValidationErrors(err)...)
	}
	for _, name := range required {
		if _, ok := data[name]; !ok {
			errs = append(errs, &ValidationError{Key: name, Reason: "required"})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

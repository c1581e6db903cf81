package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type validates the values a field may hold.
type Type interface {
	Name() string
	Validate(value any) error
}

// kind is a named Type backed by a check function. Every built-in type is one.
type kind struct {
	name  string
	check func(any) error
}

func (k kind) Name() string { return k.name }
func (k kind) Validate(value any) error { return k.check(value) }

var (
	stringKind = kind{name: "string", check: func(v any) error {
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		return nil
	}}

	intKind = kind{name: "int", check: func(v any) error {
		if _, ok := AsInt(v); !ok {
			return fmt.Errorf("expected int, got %T %v", v, v)
		}
		return nil
	}}

	floatKind = kind{name: "float", check: func(v any) error {
		switch n := v.(type) {
		case float32, float64:
			return nil
		case json.Number:
			if _, err := n.Float64(); err != nil {
				return fmt.Errorf("expected float, got number %s", n)
			}
			return nil
		}
		if _, ok := AsInt(v); ok {
			return nil
		}
		return fmt.Errorf("expected float, got %T", v)
	}}

	boolKind = kind{name: "bool", check: func(v any) error {
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		return nil
	}}

	anyKind = kind{name: "any", check: func(any) error { return nil }}
)

// AsInt converts v to an int when it holds a whole number that fits.
// Decoded JSON never yields int, so whole float64 values and json.Number
// are accepted. Int fields are validated against this coercion.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || n < math.MinInt || n >= math.MaxInt {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return AsInt(i)
	}
	return 0, false
}

func String() Type { return stringKind }

// Int accepts any whole number AsInt can convert.
func Int() Type { return intKind }

// Float accepts floats and every integer Int accepts.
func Float() Type { return floatKind }

func Bool() Type { return boolKind }

// Any accepts every value, including nil.
func Any() Type { return anyKind }

// Slice accepts slices and arrays whose elements all satisfy elem.
func Slice(elem Type) Type {
	return kind{
		name: "[" + elem.Name() + "]",
		check: func(v any) error {
			rv := reflect.ValueOf(v)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return fmt.Errorf("expected slice, got %T", v)
			}
			for i := range rv.Len() {
				if err := elem.Validate(rv.Index(i).Interface()); err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
			}
			return nil
		},
	}
}

// Custom names a caller-supplied check.
func Custom(name string, validate func(any) error) Type {
	return kind{name: name, check: validate}
}

// ParseType resolves names such as "int" or "[string]". An empty name is any.
func ParseType(name string) (Type, error) {
	name = strings.TrimSpace(name)
	if inner, ok := strings.CutPrefix(name, "["); ok {
		if inner, ok = strings.CutSuffix(inner, "]"); ok && inner != "" {
			elem, err := ParseType(inner)
			if err != nil {
				return nil, err
			}
			return Slice(elem), nil
		}
	}

	switch name {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any", "":
		return Any(), nil
	}
	return nil, fmt.Errorf("unsupported type: %s", name)
}

package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aretw0/bindery/pkg/tree"
)

// Type is the expected shape of one value.
type Type interface {
	Name() string
	Check(value any) error
}

type scalar struct {
	name  string
	match func(any) bool
}

func (s scalar) Name() string { return s.name }

func (s scalar) Check(value any) error {
	if s.match(value) {
		return nil
	}
	return mismatch(s.name, value)
}

// String accepts strings.
func String() Type {
	return scalar{"string", func(v any) bool { _, ok := v.(string); return ok }}
}

// Int accepts integers, and floats without a fractional part.
func Int() Type { return scalar{"int", isInt} }

// Float accepts any number.
func Float() Type {
	return scalar{"float", func(v any) bool { return isInt(v) || isFloat(v) }}
}

// Bool accepts booleans.
func Bool() Type {
	return scalar{"bool", func(v any) bool { _, ok := v.(bool); return ok }}
}

// Object accepts any object, whatever its properties.
func Object() Type {
	return scalar{"object", func(v any) bool { _, ok := v.(*tree.Object); return ok }}
}

// Any accepts every value, null included. The identifier must still exist.
func Any() Type {
	return scalar{"any", func(any) bool { return true }}
}

type array struct{ item Type }

// ArrayOf accepts arrays whose items all fit item.
func ArrayOf(item Type) Type { return array{item} }

func (a array) Name() string { return "[" + a.item.Name() + "]" }

func (a array) Check(value any) error {
	arr, ok := value.(*tree.Array)
	if !ok {
		return mismatch("array", value)
	}
	for i, v := range arr.Values() {
		if err := a.item.Check(v); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

type optional struct{ inner Type }

// Optional lets the value be null or missing; otherwise it must fit t.
func Optional(t Type) Type {
	if o, ok := t.(optional); ok {
		return o
	}
	return optional{t}
}

func (o optional) Name() string { return o.inner.Name() + "?" }

func (o optional) Check(value any) error {
	if value == nil {
		return nil
	}
	return o.inner.Check(value)
}

type shape struct{ fields Schema }

// Shape accepts objects whose properties fit fields. Identifiers in fields
// are relative to the object.
func Shape(fields Schema) Type { return shape{fields} }

func (s shape) Name() string {
	ids := s.fields.keys()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id + ": " + s.fields[id].Name()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s shape) Check(value any) error {
	obj, ok := value.(*tree.Object)
	if !ok {
		return mismatch("object", value)
	}
	return Validate(s.fields, obj)
}

type custom struct {
	name  string
	check func(any) error
}

// Custom wraps check as a Type called name. Custom types are not known to
// Parse.
func Custom(name string, check func(any) error) Type {
	return custom{name, check}
}

func (c custom) Name() string { return c.name }

func (c custom) Check(value any) error { return c.check(value) }

var builtins = map[string]Type{
	"string": String(),
	"int":    Int(),
	"float":  Float(),
	"bool":   Bool(),
	"object": Object(),
	"any":    Any(),
}

// Parse reads a type expression: a builtin name, "[T]" or "T?".
func Parse(expr string) (Type, error) {
	expr = strings.TrimSpace(expr)
	if inner, ok := strings.CutSuffix(expr, "?"); ok {
		t, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return Optional(t), nil
	}
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		t, err := Parse(expr[1 : len(expr)-1])
		if err != nil {
			return nil, err
		}
		return ArrayOf(t), nil
	}
	if t, ok := builtins[expr]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown type %q", expr)
}

func mismatch(want string, value any) error {
	return fmt.Errorf("expected %s, got %s", want, describe(value))
}

// describe names the kind of value in schema terms.
func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case *tree.Object:
		return "object"
	case *tree.Array:
		return "array"
	}
	switch {
	case isInt(value):
		return "int"
	case isFloat(value):
		return "float"
	}
	return fmt.Sprintf("%T", value)
}

func isInt(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return n == math.Trunc(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n) == math.Trunc(float64(n)) && !math.IsInf(float64(n), 0)
	}
	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func (s Schema) keys() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

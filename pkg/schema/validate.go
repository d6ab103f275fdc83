package schema

import (
	"sort"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// Schema maps identifiers to the types of their values.
type Schema map[string]Type

// Identifiers returns every identifier s constrains, shapes expanded, in
// sorted order.
func (s Schema) Identifiers() []string {
	var out []string
	s.each("", func(id string, _ Type) { out = append(out, id) })
	sort.Strings(out)
	return out
}

func (s Schema) each(prefix string, fn func(id string, t Type)) {
	for _, key := range s.keys() {
		id := domain.Join(prefix, key)
		t := s[key]
		fn(id, t)
		if sh, ok := unwrap(t).(shape); ok {
			sh.fields.each(id, fn)
		}
	}
}

// Validate checks every identifier of s against root. A missing identifier
// is a violation unless its type is Optional. The returned error is a
// *Report, or nil.
func Validate(s Schema, root *tree.Object) error {
	var c checker
	c.schema(s, root, "")
	return c.report()
}

// ValidateFields checks only ids. Identifiers nested in a shape are named in
// full; an identifier s does not constrain is a violation.
func ValidateFields(s Schema, root *tree.Object, ids ...string) error {
	types := make(map[string]Type)
	s.each("", func(id string, t Type) { types[id] = t })

	var c checker
	for _, id := range ids {
		t, ok := types[id]
		if !ok {
			c.add(id, "not in schema", nil)
			continue
		}
		c.field(root, id, t)
	}
	return c.report()
}

type checker struct {
	found []*Violation
}

func (c *checker) add(id, reason string, value any) {
	c.found = append(c.found, &Violation{ID: id, Reason: reason, Value: value})
}

func (c *checker) schema(s Schema, root *tree.Object, prefix string) {
	for _, key := range s.keys() {
		c.field(root, domain.Join(prefix, key), s[key])
	}
}

func (c *checker) field(root *tree.Object, id string, t Type) {
	value, ok := lookup(root, id)
	_, nullable := t.(optional)
	switch {
	case !ok && !nullable:
		c.add(id, "missing", nil)
		return
	case value == nil && nullable:
		return
	}
	sh, ok := unwrap(t).(shape)
	if !ok {
		if err := t.Check(value); err != nil {
			c.add(id, err.Error(), value)
		}
		return
	}
	if _, isObject := value.(*tree.Object); !isObject {
		c.add(id, mismatch("object", value).Error(), value)
		return
	}
	c.schema(sh.fields, root, id)
}

func (c *checker) report() error {
	if len(c.found) == 0 {
		return nil
	}
	sort.SliceStable(c.found, func(i, j int) bool { return c.found[i].ID < c.found[j].ID })
	return &Report{Violations: c.found}
}

func unwrap(t Type) Type {
	if o, ok := t.(optional); ok {
		return o.inner
	}
	return t
}

// lookup resolves id in root on raw values. A property holding null is
// found; an absent one is not.
func lookup(root *tree.Object, id string) (any, bool) {
	segs, ok := domain.Split(id)
	if !ok || root == nil {
		return nil, false
	}
	var cur any = root
	for _, seg := range segs {
		switch c := cur.(type) {
		case *tree.Object:
			if !c.Has(seg) {
				return nil, false
			}
		case *tree.Array:
			if seg == tree.LengthKey {
				break
			}
			if i, ok := tree.Index(seg); !ok || i >= c.Len() {
				return nil, false
			}
		default:
			return nil, false
		}
		cur = tree.Child(cur, seg)
	}
	return cur, true
}

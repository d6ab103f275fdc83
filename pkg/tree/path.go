package tree

import "strconv"

// LengthKey is the pseudo property exposing an array's length.
const LengthKey = "length"

// Index parses seg as an array index.
func Index(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Child returns the raw value of seg under v without touching traps.
// Anything that cannot be descended yields nil.
func Child(v any, seg string) any {
	switch c := v.(type) {
	case *Object:
		if c == nil {
			return nil
		}
		if s := c.Slot(seg); s != nil {
			return s.Raw()
		}
	case *Array:
		if c == nil {
			return nil
		}
		if seg == LengthKey {
			return c.Len()
		}
		if i, ok := Index(seg); ok {
			if s := c.Slot(i); s != nil {
				return s.Raw()
			}
		}
	}
	return nil
}

// Walk follows segs from v without touching traps. A nil or primitive value
// met mid-path makes the rest of the walk nil.
func Walk(v any, segs []string) any {
	for _, seg := range segs {
		if v == nil {
			return nil
		}
		v = Child(v, seg)
	}
	return v
}

// Clone deep copies v. Traps and interceptors are not copied. Cycles are
// preserved.
func Clone(v any) any {
	return clone(v, make(map[any]any))
}

func clone(v any, seen map[any]any) any {
	switch c := v.(type) {
	case *Object:
		if c == nil {
			return nil
		}
		if done, ok := seen[c]; ok {
			return done
		}
		out := NewObject()
		seen[c] = out
		c.Range(func(key string, s *Slot) bool {
			out.EnsureSlot(key).value = clone(s.value, seen)
			return true
		})
		return out
	case *Array:
		if c == nil {
			return nil
		}
		if done, ok := seen[c]; ok {
			return done
		}
		out := &Array{}
		seen[c] = out
		vals := c.Values()
		for i, item := range vals {
			vals[i] = clone(item, seen)
		}
		out.rewrite(vals)
		return out
	default:
		return v
	}
}

package tree

import "reflect"

// Kind classifies a value stored in the tree.
type Kind uint8

const (
	KindUndefined Kind = iota // nil
	KindPrimitive             // comparable scalar
	KindObject                // *Object
	KindArray                 // *Array
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindPrimitive:
		return "primitive"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// KindOf reports the kind of v. Typed nil containers are undefined.
func KindOf(v any) Kind {
	switch c := v.(type) {
	case nil:
		return KindUndefined
	case *Object:
		if c == nil {
			return KindUndefined
		}
		return KindObject
	case *Array:
		if c == nil {
			return KindUndefined
		}
		return KindArray
	default:
		return KindPrimitive
	}
}

// IsContainer reports whether v is an *Object or *Array.
func IsContainer(v any) bool {
	k := KindOf(v)
	return k == KindObject || k == KindArray
}

// Same reports whether a and b are the same value: pointer identity for
// containers, == for comparable primitives. Uncomparable values are never
// the same.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return KindOf(a) == KindUndefined && KindOf(b) == KindUndefined
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

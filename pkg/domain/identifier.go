package domain

import "strings"

// Separator delimits identifier segments.
const Separator = "."

// Split returns the segments of id. It reports false for the empty
// identifier and for identifiers with empty segments ("a..b", ".a", "a.").
func Split(id string) ([]string, bool) {
	if id == "" {
		return nil, false
	}
	segs := strings.Split(id, Separator)
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}

// Valid reports whether id can address a value.
func Valid(id string) bool {
	_, ok := Split(id)
	return ok
}

// Join builds an identifier from a prefix and more segments. An empty prefix
// is skipped.
func Join(prefix string, segs ...string) string {
	if len(segs) == 0 {
		return prefix
	}
	tail := strings.Join(segs, Separator)
	if prefix == "" {
		return tail
	}
	return prefix + Separator + tail
}

// Descends reports whether id equals prefix or lies below it. Every
// identifier descends from the empty prefix.
func Descends(id, prefix string) bool {
	if prefix == "" || id == prefix {
		return true
	}
	return strings.HasPrefix(id, prefix) && strings.HasPrefix(id[len(prefix):], Separator)
}

// Suffix returns the segments of id below prefix. It returns nil when id does
// not lie strictly below prefix.
func Suffix(id, prefix string) []string {
	if id == prefix || !Descends(id, prefix) {
		return nil
	}
	rest := id
	if prefix != "" {
		rest = id[len(prefix)+len(Separator):]
	}
	return strings.Split(rest, Separator)
}

// Prefixes returns every ancestor-or-self identifier of id, shortest first:
// "a.b.c" yields "a", "a.b", "a.b.c".
func Prefixes(id string) []string {
	segs, ok := Split(id)
	if !ok {
		return nil
	}
	out := make([]string, len(segs))
	for i := range segs {
		out[i] = strings.Join(segs[:i+1], Separator)
	}
	return out
}

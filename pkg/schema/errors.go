package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Violation is one identifier whose value does not fit its type.
type Violation struct {
	ID     string
	Reason string
	Value  any
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%q: %s", v.ID, v.Reason)
}

// Report collects the violations of one validation, ordered by identifier.
type Report struct {
	Violations []*Violation
}

func (r *Report) Error() string {
	if len(r.Violations) == 1 {
		return r.Violations[0].Error()
	}
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%d schema violations: %s", len(r.Violations), strings.Join(parts, "; "))
}

// Unwrap exposes each violation to errors.Is and errors.As.
func (r *Report) Unwrap() []error {
	out := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v
	}
	return out
}

// Violations extracts the violations reported by err, looking through
// wrapping. It returns nil when err carries no Report.
func Violations(err error) []*Violation {
	var r *Report
	if errors.As(err, &r) {
		return r.Violations
	}
	return nil
}

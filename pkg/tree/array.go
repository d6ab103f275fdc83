package tree

import (
	"fmt"
	"slices"
)

// Op names a mutating array operation.
type Op string

const (
	OpAppend      Op = "append"
	OpRemoveLast  Op = "removeLast"
	OpRemoveFirst Op = "removeFirst"
	OpPrepend     Op = "prepend"
	OpSort        Op = "sort"
	OpReverse     Op = "reverse"
	OpSplice      Op = "splice"
)

// Mutation describes the effect of one array operation.
type Mutation struct {
	Op       Op
	Index    int
	Removed  []any
	Added    int
	Snapshot []any // pre-mutation values, sort and reverse only
}

// Empty reports whether the operation left the array untouched.
func (m Mutation) Empty() bool {
	if m.Op == OpSort || m.Op == OpReverse {
		return false
	}
	return len(m.Removed) == 0 && m.Added == 0
}

// Interceptor wraps the mutating operations of one array. apply performs the
// raw operation and returns its Mutation; Intercept must call it exactly once.
type Interceptor interface {
	Intercept(a *Array, op Op, apply func() Mutation) Mutation
}

// Array is a list of positional slots. Slots keep their identity per index
// position: shrinking keeps the spare slots (and their traps) around so that a
// later growth reuses them.
// It is not safe for concurrent use.
type Array struct {
	slots       []*Slot
	n           int
	interceptor Interceptor
}

// NewArray creates an array holding items.
func NewArray(items ...any) *Array {
	a := &Array{}
	a.rewrite(items)
	return a
}

// Len returns the logical length.
func (a *Array) Len() int {
	return a.n
}

// At returns the value at i through the slot trap if any. Out of range
// indexes yield nil.
func (a *Array) At(i int) any {
	if i < 0 || i >= a.n {
		return nil
	}
	return a.slots[i].load()
}

// Set writes index i through the slot trap if any. Writing past the end grows
// the array (padding with nil) and is reported as a splice at the old length.
func (a *Array) Set(i int, value any) {
	if i < 0 {
		return
	}
	if i < a.n {
		a.slots[i].assign(value)
		return
	}
	a.mutate(OpSplice, func() Mutation {
		start := a.n
		vals := a.Values()
		for len(vals) < i {
			vals = append(vals, nil)
		}
		vals = append(vals, value)
		a.rewrite(vals)
		return Mutation{Op: OpSplice, Index: start, Added: i + 1 - start}
	})
}

// Slot returns the slot at i, or nil when i is out of range.
func (a *Array) Slot(i int) *Slot {
	if i < 0 || i >= a.n {
		return nil
	}
	return a.slots[i]
}

// RangeSlots calls fn for every allocated slot, including spare slots past
// Len, until fn returns false.
func (a *Array) RangeSlots(fn func(i int, s *Slot) bool) {
	for i, s := range a.slots {
		if !fn(i, s) {
			return
		}
	}
}

// Values returns a copy of the raw values.
func (a *Array) Values() []any {
	out := make([]any, a.n)
	for i := 0; i < a.n; i++ {
		out[i] = a.slots[i].value
	}
	return out
}

// Interceptor returns the installed interceptor, or nil.
func (a *Array) Interceptor() Interceptor {
	return a.interceptor
}

// SetInterceptor installs i, replacing any previous one. nil removes it.
func (a *Array) SetInterceptor(i Interceptor) {
	a.interceptor = i
}

// Append adds items at the end and returns the new length.
func (a *Array) Append(items ...any) int {
	a.mutate(OpAppend, func() Mutation {
		start := a.n
		a.rewrite(append(a.Values(), items...))
		return Mutation{Op: OpAppend, Index: start, Added: len(items)}
	})
	return a.n
}

// RemoveLast removes and returns the last item.
func (a *Array) RemoveLast() any {
	m := a.mutate(OpRemoveLast, func() Mutation {
		if a.n == 0 {
			return Mutation{Op: OpRemoveLast}
		}
		vals := a.Values()
		last := len(vals) - 1
		removed := vals[last]
		a.rewrite(vals[:last])
		return Mutation{Op: OpRemoveLast, Index: last, Removed: []any{removed}}
	})
	if len(m.Removed) == 0 {
		return nil
	}
	return m.Removed[0]
}

// RemoveFirst removes and returns the first item.
func (a *Array) RemoveFirst() any {
	m := a.mutate(OpRemoveFirst, func() Mutation {
		if a.n == 0 {
			return Mutation{Op: OpRemoveFirst}
		}
		vals := a.Values()
		removed := vals[0]
		a.rewrite(vals[1:])
		return Mutation{Op: OpRemoveFirst, Index: 0, Removed: []any{removed}}
	})
	if len(m.Removed) == 0 {
		return nil
	}
	return m.Removed[0]
}

// Prepend inserts items at the front and returns the new length.
func (a *Array) Prepend(items ...any) int {
	a.mutate(OpPrepend, func() Mutation {
		vals := make([]any, 0, a.n+len(items))
		vals = append(vals, items...)
		vals = append(vals, a.Values()...)
		a.rewrite(vals)
		return Mutation{Op: OpPrepend, Index: 0, Added: len(items)}
	})
	return a.n
}

// Sort sorts the array in place with a stable sort. A nil less compares the
// string forms of the values; nil values sort last.
func (a *Array) Sort(less func(x, y any) bool) {
	if less == nil {
		less = defaultLess
	}
	a.mutate(OpSort, func() Mutation {
		snapshot := a.Values()
		vals := a.Values()
		slices.SortStableFunc(vals, func(x, y any) int {
			switch {
			case less(x, y):
				return -1
			case less(y, x):
				return 1
			default:
				return 0
			}
		})
		a.rewrite(vals)
		return Mutation{Op: OpSort, Snapshot: snapshot}
	})
}

// Reverse reverses the array in place.
func (a *Array) Reverse() {
	a.mutate(OpReverse, func() Mutation {
		snapshot := a.Values()
		vals := a.Values()
		slices.Reverse(vals)
		a.rewrite(vals)
		return Mutation{Op: OpReverse, Snapshot: snapshot}
	})
}

// Splice removes deleteCount items at start, inserts items in their place and
// returns the removed items. A negative start counts from the end; start and
// deleteCount are clamped to the array bounds.
func (a *Array) Splice(start, deleteCount int, items ...any) []any {
	m := a.mutate(OpSplice, func() Mutation {
		vals := a.Values()
		from := clampStart(start, len(vals))
		count := deleteCount
		if count < 0 {
			count = 0
		}
		if count > len(vals)-from {
			count = len(vals) - from
		}
		removed := make([]any, count)
		copy(removed, vals[from:from+count])

		next := make([]any, 0, len(vals)-count+len(items))
		next = append(next, vals[:from]...)
		next = append(next, items...)
		next = append(next, vals[from+count:]...)
		a.rewrite(next)
		return Mutation{Op: OpSplice, Index: from, Removed: removed, Added: len(items)}
	})
	return m.Removed
}

func (a *Array) mutate(op Op, apply func() Mutation) Mutation {
	if a.interceptor == nil {
		return apply()
	}
	return a.interceptor.Intercept(a, op, apply)
}

// rewrite stores vals positionally, reusing existing slots.
func (a *Array) rewrite(vals []any) {
	for len(a.slots) < len(vals) {
		a.slots = append(a.slots, &Slot{})
	}
	for i, s := range a.slots {
		if i < len(vals) {
			s.value = vals[i]
		} else {
			s.value = nil
		}
	}
	a.n = len(vals)
}

func clampStart(start, n int) int {
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if start > n {
		start = n
	}
	return start
}

func defaultLess(x, y any) bool {
	if x == nil {
		return false
	}
	if y == nil {
		return true
	}
	return fmt.Sprint(x) < fmt.Sprint(y)
}

package domain

import (
	"math"

	"github.com/aretw0/bindery/pkg/tree"
)

// LowestPriority is the default listener priority.
const LowestPriority = math.MinInt

// Listener receives value changes for one identifier.
// Listeners are compared by pointer: registering the same *Listener twice on
// the same identifier returns the live registration.
type Listener struct {
	// OwnerID identifies the component that registered the listener. Disposing
	// that owner removes the listener from every context root.
	OwnerID string

	// Priority orders listeners of one identifier, highest first. Equal
	// priorities run in registration order.
	Priority int

	Callback func(newValue, oldValue any)
}

// ListenerOption configures a Listener built by NewListener.
type ListenerOption func(*Listener)

// WithPriority sets the listener priority.
func WithPriority(priority int) ListenerOption {
	return func(l *Listener) {
		l.Priority = priority
	}
}

// NewListener creates a listener with the lowest priority unless configured
// otherwise.
func NewListener(ownerID string, callback func(newValue, oldValue any), opts ...ListenerOption) *Listener {
	l := &Listener{
		OwnerID:  ownerID,
		Priority: LowestPriority,
		Callback: callback,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RemovalToken deregisters exactly one observation. Invoking it more than
// once is a no-op, and it is safe to invoke it from inside the listener it
// removes.
type RemovalToken func()

// Noop is the trivial token handed out for observations that were never
// registered (invalid identifier, missing or disposed owner).
func Noop() {}

// Once wraps fn into an idempotent RemovalToken.
func Once(fn func()) RemovalToken {
	done := false
	return func() {
		if done {
			return
		}
		done = true
		fn()
	}
}

// ArrayChange describes one mutating operation applied to an observed array.
type ArrayChange struct {
	Array   *tree.Array
	Op      tree.Op
	Index   int
	Removed []any
	Added   int

	// Snapshot holds the values before the operation. Only set for sort and
	// reverse.
	Snapshot []any
}

// ArrayCallback receives the change records of one operation.
type ArrayCallback func(changes []ArrayChange)

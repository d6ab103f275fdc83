package domain

import "time"

// EventType defines the category of the event.
type EventType string

const (
	EventNotify        EventType = "notify"
	EventTrapInstall   EventType = "trap_install"
	EventTrapRemove    EventType = "trap_remove"
	EventArrayChange   EventType = "array_change"
	EventDepthExceeded EventType = "depth_exceeded"
	EventDispose       EventType = "dispose"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RootID    string    `json:"root_id"`
}

// NotifyEvent is emitted when listeners of an identifier are invoked, or
// dropped because the recursion bound was hit.
type NotifyEvent struct {
	EventBase
	Identifier string `json:"identifier"`
	Listeners  int    `json:"listeners"`
	Depth      int    `json:"depth"`
}

// TrapEvent is emitted when an accessor trap is installed or removed.
type TrapEvent struct {
	EventBase
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
}

// ArrayEvent is emitted when an observed array is mutated.
type ArrayEvent struct {
	EventBase
	Identifier string `json:"identifier"`
	Op         string `json:"op"`
	Listeners  int    `json:"listeners"`
}

// DisposeEvent is emitted when an owner is disposed.
type DisposeEvent struct {
	EventBase
	OwnerID string `json:"owner_id"`
	Removed int    `json:"removed"`
}

// LifecycleHooks defines callbacks for engine observability. Every field is
// optional. Hooks run synchronously on the mutating goroutine.
type LifecycleHooks struct {
	OnNotify        func(*NotifyEvent)
	OnTrapInstall   func(*TrapEvent)
	OnTrapRemove    func(*TrapEvent)
	OnArrayChange   func(*ArrayEvent)
	OnDepthExceeded func(*NotifyEvent)
	OnDispose       func(*DisposeEvent)
}

// Merge returns hooks invoking h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNotify:        chain(h.OnNotify, other.OnNotify),
		OnTrapInstall:   chain(h.OnTrapInstall, other.OnTrapInstall),
		OnTrapRemove:    chain(h.OnTrapRemove, other.OnTrapRemove),
		OnArrayChange:   chain(h.OnArrayChange, other.OnArrayChange),
		OnDepthExceeded: chain(h.OnDepthExceeded, other.OnDepthExceeded),
		OnDispose:       chain(h.OnDispose, other.OnDispose),
	}
}

func chain[E any](a, b func(*E)) func(*E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(e *E) {
		a(e)
		b(e)
	}
}

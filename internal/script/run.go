package script

import (
	"fmt"

	"github.com/aretw0/bindery"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/schema"
	"github.com/aretw0/bindery/pkg/tree"
)

// EventKind classifies replay output.
type EventKind string

const (
	EventValue   EventKind = "value"
	EventArray   EventKind = "array"
	EventUnwatch EventKind = "unwatch"
	EventDispose EventKind = "dispose"
)

// Event is one observable outcome of a replay. Values are native copies taken
// when the event happened.
type Event struct {
	Step     int
	Kind     EventKind
	Watch    string
	Path     string
	NewValue any
	OldValue any
	Op       tree.Op
	Index    int
	Removed  []any
	Added    int
	Count    int
}

// Run restores the script root into eng, registers the watches and applies
// every step, handing each event to emit as it happens.
func Run(eng *bindery.Engine, s *Script, emit func(Event)) error {
	r := &replay{engine: eng, script: s, emit: emit, tokens: make(map[string]domain.RemovalToken)}
	if r.emit == nil {
		r.emit = func(Event) {}
	}
	eng.Restore(s.Owner, tree.Clone(s.Root).(*tree.Object))
	for _, w := range s.Watches {
		r.watch(w)
	}
	for i, st := range s.Steps {
		r.step = i
		if err := r.apply(st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return r.check()
}

// check validates the final root against the script schema. A root disposed
// by the script has nothing left to check.
func (r *replay) check() error {
	if len(r.script.Schema) == 0 {
		return nil
	}
	m, ok := r.engine.Registry().Lookup(r.script.Owner)
	if !ok {
		return nil
	}
	if err := schema.Validate(r.script.Schema, m.Root()); err != nil {
		return fmt.Errorf("final state: %w", err)
	}
	return nil
}

// Collect runs s and returns every event.
func Collect(eng *bindery.Engine, s *Script) ([]Event, error) {
	var events []Event
	err := Run(eng, s, func(e Event) { events = append(events, e) })
	return events, err
}

type replay struct {
	engine *bindery.Engine
	script *Script
	emit   func(Event)
	tokens map[string]domain.RemovalToken
	step   int
}

func (r *replay) watch(w Watch) {
	if w.Array {
		r.tokens[w.Name] = r.engine.ObserveArrayMutation(r.script.Owner, w.Path, w.Owner, func(changes []domain.ArrayChange) {
			for _, c := range changes {
				r.emit(Event{
					Step:    r.step,
					Kind:    EventArray,
					Watch:   w.Name,
					Path:    w.Path,
					Op:      c.Op,
					Index:   c.Index,
					Removed: nativeAll(c.Removed),
					Added:   c.Added,
				})
			}
		})
		return
	}

	var opts []domain.ListenerOption
	if w.Priority != nil {
		opts = append(opts, domain.WithPriority(*w.Priority))
	}
	r.tokens[w.Name] = r.engine.ObserveFunc(r.script.Owner, w.Path, w.Owner, func(newValue, oldValue any) {
		r.emit(Event{
			Step:     r.step,
			Kind:     EventValue,
			Watch:    w.Name,
			Path:     w.Path,
			NewValue: tree.ToNative(newValue),
			OldValue: tree.ToNative(oldValue),
		})
	}, opts...)
}

func (r *replay) apply(st Step) error {
	owner := r.script.Owner
	switch st.Op {
	case OpSet:
		if !r.engine.SetContext(owner, st.Path, st.Value) {
			return fmt.Errorf("cannot write %q", st.Path)
		}
		return nil
	case OpUnwatch:
		r.tokens[st.Watch]()
		r.emit(Event{Step: r.step, Kind: EventUnwatch, Watch: st.Watch})
		return nil
	case OpDispose:
		n := r.engine.Dispose(st.Owner)
		r.emit(Event{Step: r.step, Kind: EventDispose, Path: st.Owner, Count: n})
		return nil
	}

	arr, ok := r.engine.GetContext(owner, st.Path).(*tree.Array)
	if !ok {
		return fmt.Errorf("%q is not an array", st.Path)
	}
	switch st.Op {
	case OpAppend:
		arr.Append(fromNativeAll(st.Values)...)
	case OpPrepend:
		arr.Prepend(fromNativeAll(st.Values)...)
	case OpPop:
		arr.RemoveLast()
	case OpShift:
		arr.RemoveFirst()
	case OpSplice:
		arr.Splice(st.Start, st.Delete, fromNativeAll(st.Values)...)
	case OpSort:
		arr.Sort(nil)
	case OpReverse:
		arr.Reverse()
	}
	return nil
}

func fromNativeAll(vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = tree.FromNative(v)
	}
	return out
}

func nativeAll(vals []any) []any {
	if len(vals) == 0 {
		return nil
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = tree.ToNative(v)
	}
	return out
}

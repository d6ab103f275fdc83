package reactive

import (
	"log/slog"
	"sort"

	"github.com/aretw0/bindery/internal/logging"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// DefaultMaxDepth bounds nested notifications (a listener writing an observed
// value that triggers more listeners, and so on).
const DefaultMaxDepth = 64

// State is the lifecycle state of a Manager.
type State int

const (
	StateUninitialized State = iota // no root yet
	StateActive                     // root assigned
	StateDisposed                   // terminal
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Manager owns one context root and everything observing it: the listener
// index, the dependency index, the value cache, and every trap and array
// interceptor installed on the root graph.
//
// A Manager is single-threaded. Listeners run synchronously on the goroutine
// performing the write, before the write returns.
type Manager struct {
	rootID string
	root   *tree.Object
	state  State

	listeners map[string][]*registration // value listeners by identifier
	arrays    map[string][]*registration // array listeners by identifier
	owned     map[string]map[*registration]struct{}

	deps  map[string]map[string]struct{} // prefix -> observed descendant-or-self identifiers
	cache map[string]any

	traps    map[*trap]struct{}
	trackers map[*tree.Array]*arrayTracker
	watchers map[string]domain.RemovalToken // deferred index identifiers

	lastRead *trap
	depth    int
	maxDepth int
	seq      uint64

	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithMaxDepth bounds nested notifications. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(m *Manager) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// New creates an uninitialized Manager for the given root owner id.
func New(rootID string, opts ...Option) *Manager {
	m := &Manager{
		rootID:   rootID,
		maxDepth: DefaultMaxDepth,
		logger:   logging.NewNop(),
	}
	m.reset()
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("root", rootID)
	return m
}

func (m *Manager) reset() {
	m.listeners = make(map[string][]*registration)
	m.arrays = make(map[string][]*registration)
	m.owned = make(map[string]map[*registration]struct{})
	m.deps = make(map[string]map[string]struct{})
	m.cache = make(map[string]any)
	m.traps = make(map[*trap]struct{})
	m.trackers = make(map[*tree.Array]*arrayTracker)
	m.watchers = make(map[string]domain.RemovalToken)
}

// RootID returns the owner id of the context root.
func (m *Manager) RootID() string {
	return m.rootID
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// activate assigns an empty root on first use. It reports false once the
// manager is disposed.
func (m *Manager) activate() bool {
	switch m.state {
	case StateDisposed:
		return false
	case StateUninitialized:
		m.root = tree.NewObject()
		m.state = StateActive
	}
	return true
}

// Root returns the context root, creating it on first use. It returns nil
// after Dispose.
func (m *Manager) Root() *tree.Object {
	if !m.activate() {
		return nil
	}
	return m.root
}

// Observe registers l on id and returns the token removing it. Invalid
// identifiers, nil listeners and disposed managers yield domain.Noop.
// Registering the same listener twice on id returns the live token.
func (m *Manager) Observe(id string, l *domain.Listener) domain.RemovalToken {
	if l == nil || !domain.Valid(id) || !m.activate() {
		return domain.Noop
	}
	for _, r := range m.listeners[id] {
		if r.listener == l {
			return r.token
		}
	}

	r := m.register(id, l.OwnerID)
	r.listener = l
	m.listeners[id] = insertByPriority(m.listeners[id], r)
	m.depend(id)
	m.bind(id)
	m.cache[id] = m.resolve(id)
	return r.token
}

// ObserveArray registers callback for the change records of the array held
// at id. The registration follows the identifier: replacing the array moves
// it to the new instance.
func (m *Manager) ObserveArray(id, ownerID string, callback domain.ArrayCallback) domain.RemovalToken {
	if callback == nil || !domain.Valid(id) || !m.activate() {
		return domain.Noop
	}
	r := m.register(id, ownerID)
	r.onChange = callback
	m.arrays[id] = append(m.arrays[id], r)
	m.depend(id)
	m.bind(id)
	return r.token
}

// Get returns the value at id without observing it. Reads do not go through
// traps.
func (m *Manager) Get(id string) any {
	if !domain.Valid(id) || !m.activate() {
		return nil
	}
	if v, ok := m.cache[id]; ok {
		return v
	}
	return m.resolve(id)
}

// Create makes sure every object along id exists and returns the value at id.
// Missing intermediates become arrays when the next segment is numeric.
// Writes go through traps, so observers of created paths are notified.
func (m *Manager) Create(id string) any {
	segs, ok := domain.Split(id)
	if !ok || !m.activate() {
		return nil
	}
	return m.createPath(segs, false)
}

// Set writes value at id, creating the intermediates as Create does. Native
// maps and slices are converted to tree values. It reports whether the write
// happened.
func (m *Manager) Set(id string, value any) bool {
	segs, ok := domain.Split(id)
	if !ok || !m.activate() {
		return false
	}
	last := segs[len(segs)-1]
	var parent any = m.root
	if len(segs) > 1 {
		_, leafIndex := tree.Index(last)
		parent = m.createPath(segs[:len(segs)-1], leafIndex)
	}
	return put(parent, last, tree.FromNative(value))
}

func (m *Manager) createPath(segs []string, leafArray bool) any {
	var cur any = m.root
	for i, seg := range segs {
		next := tree.Child(cur, seg)
		if next == nil {
			var fresh any = tree.NewObject()
			nextIsIndex := leafArray
			if i+1 < len(segs) {
				_, nextIsIndex = tree.Index(segs[i+1])
			}
			if nextIsIndex {
				fresh = tree.NewArray()
			}
			if !put(cur, seg, fresh) {
				return nil
			}
			next = fresh
		}
		if i+1 < len(segs) && !tree.IsContainer(next) {
			return nil
		}
		cur = next
	}
	return cur
}

func put(container any, seg string, value any) bool {
	switch c := container.(type) {
	case *tree.Object:
		c.Set(seg, value)
		return true
	case *tree.Array:
		i, ok := tree.Index(seg)
		if !ok {
			return false
		}
		c.Set(i, value)
		return true
	}
	return false
}

// Restore swaps root in wholesale. Every observed identifier is recomputed
// and notified when its value differs.
func (m *Manager) Restore(root *tree.Object) {
	if root == nil || m.state == StateDisposed {
		return
	}
	if m.state == StateUninitialized {
		m.root = root
		m.state = StateActive
		return
	}
	old := m.root
	if old == root {
		return
	}
	m.detach(old, []string{""})
	m.root = root
	if !m.enter() {
		m.exceeded("")
		m.rebindDescendants("", root, old)
		return
	}
	defer m.leave()
	m.notifyDescendants("", root, old)
}

// Release invokes the token of every registration owned by ownerID on this
// root and returns how many there were.
func (m *Manager) Release(ownerID string) int {
	regs := sortedRegistrations(m.owned[ownerID])
	for _, r := range regs {
		r.token()
	}
	return len(regs)
}

// Dispose invokes every token issued on this root, strips every trap and
// array interceptor, clears the indexes and moves to StateDisposed. It
// returns the number of registrations removed. Calling it again is a no-op.
func (m *Manager) Dispose() int {
	if m.state == StateDisposed {
		return 0
	}
	m.state = StateDisposed

	var all []*registration
	for _, set := range m.owned {
		all = append(all, sortedRegistrations(set)...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	for _, r := range all {
		r.token()
	}
	for t := range m.traps {
		m.uninstall(t)
	}
	for arr := range m.trackers {
		m.restoreArray(arr)
	}
	m.reset()
	m.root = nil
	m.lastRead = nil
	m.logger.Debug("context disposed", "registrations", len(all))
	return len(all)
}

// Stats summarises the indexes of a Manager.
type Stats struct {
	RootID         string `json:"root_id"`
	State          string `json:"state"`
	Listeners      int    `json:"listeners"`
	ArrayListeners int    `json:"array_listeners"`
	Identifiers    int    `json:"identifiers"`
	Dependencies   int    `json:"dependencies"`
	Cached         int    `json:"cached"`
	Traps          int    `json:"traps"`
	TrackedArrays  int    `json:"tracked_arrays"`
	Watchers       int    `json:"watchers"`
}

// Stats returns counters describing the current indexes.
func (m *Manager) Stats() Stats {
	s := Stats{
		RootID:        m.rootID,
		State:         m.state.String(),
		Dependencies:  len(m.deps),
		Cached:        len(m.cache),
		Traps:         len(m.traps),
		TrackedArrays: len(m.trackers),
		Watchers:      len(m.watchers),
	}
	ids := make(map[string]struct{})
	for id, regs := range m.listeners {
		for _, r := range regs {
			if r.internal {
				continue
			}
			s.Listeners++
			ids[id] = struct{}{}
		}
	}
	for id, regs := range m.arrays {
		s.ArrayListeners += len(regs)
		ids[id] = struct{}{}
	}
	s.Identifiers = len(ids)
	return s
}

func (m *Manager) resolve(id string) any {
	segs, ok := domain.Split(id)
	if !ok || m.root == nil {
		return nil
	}
	return tree.Walk(m.root, segs)
}

package registry

import (
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/bindery/internal/logging"
	"github.com/aretw0/bindery/internal/reactive"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// Stats describes the indexes of one context root.
type Stats = reactive.Stats

// Registry maps owner ids to the manager of their context root.
//
// A Registry is not safe for concurrent use; the engine is single-threaded
// and callers sharing a Registry across goroutines must serialise access.
type Registry struct {
	managers map[string]*reactive.Manager

	// presence records, per listener owner, the roots it registered on so
	// that Dispose visits only those.
	presence map[string]map[string]struct{}

	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxDepth int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger configures the logger handed to every manager.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHooks registers observability hooks on every manager.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Registry) {
		r.hooks = r.hooks.Merge(hooks)
	}
}

// WithMaxDepth bounds nested notifications on every manager.
func WithMaxDepth(depth int) Option {
	return func(r *Registry) {
		r.maxDepth = depth
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		managers: make(map[string]*reactive.Manager),
		presence: make(map[string]map[string]struct{}),
		logger:   logging.NewNop(),
		maxDepth: reactive.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Manager returns the manager of owner, creating it on first use.
func (r *Registry) Manager(owner string) *reactive.Manager {
	if m, ok := r.managers[owner]; ok {
		return m
	}
	m := reactive.New(owner,
		reactive.WithLogger(r.logger),
		reactive.WithHooks(r.hooks),
		reactive.WithMaxDepth(r.maxDepth),
	)
	r.managers[owner] = m
	r.logger.Debug("context created", "owner", owner)
	return m
}

// Lookup returns the manager of owner without creating one.
func (r *Registry) Lookup(owner string) (*reactive.Manager, bool) {
	m, ok := r.managers[owner]
	return m, ok
}

// Observe registers l on the root of rootOwner. A missing root yields
// domain.Noop.
func (r *Registry) Observe(rootOwner, id string, l *domain.Listener) domain.RemovalToken {
	m, ok := r.managers[rootOwner]
	if !ok || l == nil {
		return domain.Noop
	}
	token := m.Observe(id, l)
	r.track(l.OwnerID, rootOwner)
	return token
}

// ObserveArray registers callback for the array at id on the root of
// rootOwner. A missing root yields domain.Noop.
func (r *Registry) ObserveArray(rootOwner, id, owner string, callback domain.ArrayCallback) domain.RemovalToken {
	m, ok := r.managers[rootOwner]
	if !ok || callback == nil {
		return domain.Noop
	}
	token := m.ObserveArray(id, owner, callback)
	r.track(owner, rootOwner)
	return token
}

func (r *Registry) track(owner, rootOwner string) {
	roots, ok := r.presence[owner]
	if !ok {
		roots = make(map[string]struct{})
		r.presence[owner] = roots
	}
	roots[rootOwner] = struct{}{}
}

// Restore swaps the root of owner in wholesale, creating the manager if
// needed. Observed identifiers are recomputed and notified.
func (r *Registry) Restore(owner string, root *tree.Object) {
	r.Manager(owner).Restore(root)
}

// Dispose removes every registration made by owner on any root, then disposes
// the root owned by owner, if any. It returns the number of registrations
// removed. Disposing an unknown owner is a no-op.
func (r *Registry) Dispose(owner string) int {
	removed := 0
	for _, root := range sortedKeys(r.presence[owner]) {
		if m, ok := r.managers[root]; ok {
			removed += m.Release(owner)
		}
	}
	delete(r.presence, owner)

	m, ok := r.managers[owner]
	if ok {
		removed += m.Dispose()
		delete(r.managers, owner)
		for _, roots := range r.presence {
			delete(roots, owner)
		}
	}
	if !ok && removed == 0 {
		return 0
	}

	r.logger.Debug("owner disposed", "owner", owner, "removed", removed, "had_context", ok)
	if r.hooks.OnDispose != nil {
		r.hooks.OnDispose(&domain.DisposeEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventDispose, RootID: owner},
			OwnerID:   owner,
			Removed:   removed,
		})
	}
	return removed
}

// Owners lists the owners holding a live context root, sorted.
func (r *Registry) Owners() []string {
	out := make([]string, 0, len(r.managers))
	for owner := range r.managers {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of live context roots.
func (r *Registry) Len() int {
	return len(r.managers)
}

// Inspect returns the index counters of the root owned by owner.
func (r *Registry) Inspect(owner string) (Stats, error) {
	m, ok := r.managers[owner]
	if !ok {
		return Stats{}, domain.ErrContextNotFound
	}
	return m.Stats(), nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

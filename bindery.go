package bindery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/bindery/internal/logging"
	"github.com/aretw0/bindery/internal/reactive"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/ports"
	"github.com/aretw0/bindery/pkg/registry"
	"github.com/aretw0/bindery/pkg/session"
	"github.com/aretw0/bindery/pkg/tree"
	"github.com/mitchellh/mapstructure"
)

// Engine is the high-level entry point for the bindery library.
// It owns a registry of context roots and, optionally, a snapshot store.
//
// An Engine is not safe for concurrent use. Listeners run synchronously on the
// goroutine performing the write.
type Engine struct {
	registry *registry.Registry
	sessions *session.Manager

	store    ports.SnapshotStore
	locker   ports.DistributedLocker
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	maxDepth int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxDepth bounds nested notifications (listeners writing observed
// values). Notifications past the bound are dropped and reported through
// LifecycleHooks.OnDepthExceeded.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithStore enables Save and Load.
func WithStore(store ports.SnapshotStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serialises Save and Load across processes sharing the store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{maxDepth: reactive.DefaultMaxDepth}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	eng.registry = registry.New(
		registry.WithLogger(eng.logger),
		registry.WithHooks(eng.hooks),
		registry.WithMaxDepth(eng.maxDepth),
	)
	if eng.store != nil {
		sessionOpts := []session.Option{session.WithLogger(eng.logger)}
		if eng.locker != nil {
			sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
		}
		eng.sessions = session.NewManager(eng.store, sessionOpts...)
	}
	return eng
}

// Observe registers l on identifier of the root owned by rootOwnerID. The
// returned token removes exactly this registration. Invalid identifiers and
// unknown or disposed roots yield a no-op token.
func (e *Engine) Observe(rootOwnerID, identifier string, l *domain.Listener) domain.RemovalToken {
	return e.registry.Observe(rootOwnerID, identifier, l)
}

// ObserveFunc is Observe with a listener built from fn.
func (e *Engine) ObserveFunc(rootOwnerID, identifier, ownerID string, fn func(newValue, oldValue any), opts ...domain.ListenerOption) domain.RemovalToken {
	if fn == nil {
		return domain.Noop
	}
	return e.Observe(rootOwnerID, identifier, domain.NewListener(ownerID, fn, opts...))
}

// ObserveArrayMutation registers cb for the change records of the array held
// at identifier.
func (e *Engine) ObserveArrayMutation(rootOwnerID, identifier, ownerID string, cb domain.ArrayCallback) domain.RemovalToken {
	return e.registry.ObserveArray(rootOwnerID, identifier, ownerID, cb)
}

// GetContext returns the value at identifier without observing it. The empty
// identifier returns the root. Unknown roots yield nil.
func (e *Engine) GetContext(rootOwnerID, identifier string) any {
	m, ok := e.registry.Lookup(rootOwnerID)
	if !ok {
		return nil
	}
	if identifier == "" {
		return m.Root()
	}
	return m.Get(identifier)
}

// CreateContext makes sure the objects along identifier exist, creating the
// root on first use, and returns the value at identifier. The empty
// identifier returns the root.
func (e *Engine) CreateContext(rootOwnerID, identifier string) any {
	m := e.registry.Manager(rootOwnerID)
	if identifier == "" {
		return m.Root()
	}
	return m.Create(identifier)
}

// SetContext writes value at identifier through the installed traps,
// creating the root and intermediates as needed. Native maps and slices are
// converted to tree values.
func (e *Engine) SetContext(rootOwnerID, identifier string, value any) bool {
	return e.registry.Manager(rootOwnerID).Set(identifier, value)
}

// Decode copies the value at identifier into out using json field tags.
func (e *Engine) Decode(rootOwnerID, identifier string, out any) error {
	if _, ok := e.registry.Lookup(rootOwnerID); !ok {
		return fmt.Errorf("decode %q: %w", rootOwnerID, domain.ErrContextNotFound)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("decode %q: %w", identifier, err)
	}
	if err := decoder.Decode(tree.ToNative(e.GetContext(rootOwnerID, identifier))); err != nil {
		return fmt.Errorf("decode %q: %w", identifier, err)
	}
	return nil
}

// Restore swaps the root of rootOwnerID in wholesale. Observed identifiers are
// recomputed and notified.
func (e *Engine) Restore(rootOwnerID string, root *tree.Object) {
	e.registry.Restore(rootOwnerID, root)
}

// Dispose removes every listener registered by ownerID and destroys the root
// it owns. It returns the number of registrations removed. Disposing twice is
// a no-op.
func (e *Engine) Dispose(ownerID string) int {
	return e.registry.Dispose(ownerID)
}

// Owners lists the owners holding a live root.
func (e *Engine) Owners() []string {
	return e.registry.Owners()
}

// Inspect returns the index counters of the root owned by ownerID.
func (e *Engine) Inspect(ownerID string) (registry.Stats, error) {
	return e.registry.Inspect(ownerID)
}

// Registry returns the underlying registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Save persists a snapshot of the root owned by ownerID.
func (e *Engine) Save(ctx context.Context, ownerID string) error {
	if e.sessions == nil {
		return domain.ErrNoStore
	}
	m, ok := e.registry.Lookup(ownerID)
	if !ok {
		return fmt.Errorf("save %q: %w", ownerID, domain.ErrContextNotFound)
	}
	snapshot := tree.Clone(m.Root()).(*tree.Object)
	return e.sessions.Save(ctx, ownerID, snapshot)
}

// Load restores the root of ownerID from its snapshot, creating the root if
// needed. Observed identifiers are notified of the values that changed.
func (e *Engine) Load(ctx context.Context, ownerID string) error {
	if e.sessions == nil {
		return domain.ErrNoStore
	}
	root, err := e.sessions.Load(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("load %q: %w", ownerID, err)
	}
	e.Restore(ownerID, root)
	e.logger.Debug("context loaded", "owner", ownerID)
	return nil
}

// Snapshots lists the owners with a persisted snapshot.
func (e *Engine) Snapshots(ctx context.Context) ([]string, error) {
	if e.sessions == nil {
		return nil, domain.ErrNoStore
	}
	return e.sessions.List(ctx)
}

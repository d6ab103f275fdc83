package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/bindery/internal/logging"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/ports"
	"github.com/aretw0/bindery/pkg/tree"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises snapshot access per owner id.
// Lock entries are reference counted and dropped when unused.
type Manager struct {
	store ports.SnapshotStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(ownerID) after unlocking.
func (m *Manager) acquire(ownerID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[ownerID]
	if !exists {
		entry = &lockEntry{}
		m.locks[ownerID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[ownerID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, ownerID)
	}
}

// Save persists root for ownerID.
func (m *Manager) Save(ctx context.Context, ownerID string, root *tree.Object) error {
	return m.WithLock(ctx, ownerID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, ownerID, root); err != nil {
			return fmt.Errorf("failed to save snapshot %q: %w", ownerID, err)
		}
		return nil
	})
}

// Load retrieves the snapshot of ownerID.
func (m *Manager) Load(ctx context.Context, ownerID string) (*tree.Object, error) {
	var root *tree.Object
	err := m.WithLock(ctx, ownerID, func(ctx context.Context) error {
		var err error
		root, err = m.store.Load(ctx, ownerID)
		return err
	})
	return root, err
}

// LoadOrCreate loads the snapshot of ownerID, persisting an empty root when
// there is none.
func (m *Manager) LoadOrCreate(ctx context.Context, ownerID string) (*tree.Object, error) {
	var root *tree.Object
	err := m.WithLock(ctx, ownerID, func(ctx context.Context) error {
		var err error
		root, err = m.store.Load(ctx, ownerID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrContextNotFound) {
			return fmt.Errorf("failed to check snapshot existence: %w", err)
		}

		root = tree.NewObject()
		if err := m.store.Save(ctx, ownerID, root); err != nil {
			return fmt.Errorf("failed to initialize snapshot: %w", err)
		}
		return nil
	})
	return root, err
}

// Delete removes the snapshot of ownerID.
func (m *Manager) Delete(ctx context.Context, ownerID string) error {
	return m.WithLock(ctx, ownerID, func(ctx context.Context) error {
		return m.store.Delete(ctx, ownerID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// WithLock executes fn while holding the lock for ownerID.
func (m *Manager) WithLock(ctx context.Context, ownerID string, fn func(context.Context) error) error {
	entry := m.acquire(ownerID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(ownerID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, ownerID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"owner", ownerID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

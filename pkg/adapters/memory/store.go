package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*tree.Object
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*tree.Object),
	}
}

// Save keeps a deep copy of root, similar to serialization.
func (s *Store) Save(ctx context.Context, ownerID string, root *tree.Object) error {
	if root == nil {
		return domain.ErrInvalidSnapshot
	}
	copied := tree.Clone(root).(*tree.Object)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ownerID] = copied
	return nil
}

// Load returns a copy of the snapshot so callers can't mutate the store.
func (s *Store) Load(ctx context.Context, ownerID string) (*tree.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, ok := s.data[ownerID]
	if !ok {
		return nil, domain.ErrContextNotFound
	}
	return tree.Clone(root).(*tree.Object), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, ownerID)
	return nil
}

// List returns the stored owner ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners := make([]string, 0, len(s.data))
	for id := range s.data {
		owners = append(owners, id)
	}
	sort.Strings(owners)
	return owners, nil
}

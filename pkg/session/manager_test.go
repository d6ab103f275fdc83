package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/bindery/internal/adapters/redis"
	"github.com/aretw0/bindery/pkg/adapters/memory"
	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/ports"
	"github.com/aretw0/bindery/pkg/session"
	"github.com/aretw0/bindery/pkg/tree"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowStore simulates latency and counts overlapping calls per owner.
type slowStore struct {
	ports.SnapshotStore
	mu      sync.Mutex
	active  int
	overlap bool
}

func (s *slowStore) Save(ctx context.Context, ownerID string, root *tree.Object) error {
	s.mu.Lock()
	s.active++
	if s.active > 1 {
		s.overlap = true
	}
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)
	err := s.SnapshotStore.Save(ctx, ownerID, root)

	s.mu.Lock()
	s.active--
	s.mu.Unlock()
	return err
}

func TestManager_SerialisesPerOwner(t *testing.T) {
	store := &slowStore{SnapshotStore: memory.NewStore()}
	mgr := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			root := tree.NewObject()
			root.Set("n", n)
			assert.NoError(t, mgr.Save(ctx, "page", root))
		}(i)
	}
	wg.Wait()
	assert.False(t, store.overlap, "saves for one owner must not overlap")
}

func TestManager_LockEntriesAreReleased(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("owner-%d", i)
		require.NoError(t, mgr.Save(ctx, id, tree.NewObject()))
		require.NoError(t, mgr.Delete(ctx, id))
	}

	inFlight := 0
	err := mgr.WithLock(ctx, "lock-check", func(context.Context) error {
		inFlight++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inFlight)

	owners, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestManager_LoadOrCreate(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := mgr.Load(ctx, "page")
	assert.ErrorIs(t, err, domain.ErrContextNotFound)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			root, err := mgr.LoadOrCreate(ctx, "page")
			assert.NoError(t, err)
			assert.NotNil(t, root)
		}()
	}
	wg.Wait()

	root, err := mgr.Load(ctx, "page")
	require.NoError(t, err)
	assert.Zero(t, root.Len())
}

type failingStore struct{ ports.SnapshotStore }

func (failingStore) Load(context.Context, string) (*tree.Object, error) {
	return nil, errors.New("disk on fire")
}

func TestManager_LoadOrCreatePropagatesStoreErrors(t *testing.T) {
	mgr := session.NewManager(failingStore{memory.NewStore()})
	_, err := mgr.LoadOrCreate(context.Background(), "page")
	assert.ErrorContains(t, err, "disk on fire")
}

func TestManager_DistributedLock(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redis.NewFromClient(client)
	mgr := session.NewManager(store, session.WithLocker(redis.NewLocker(client, "test:")))
	ctx := context.Background()

	err = mgr.WithLock(ctx, "page", func(ctx context.Context) error {
		assert.True(t, mr.Exists("test:lock:page"), "lock held while fn runs")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:lock:page"))

	require.NoError(t, mgr.Save(ctx, "page", tree.NewObject()))
	_, err = mgr.Load(ctx, "page")
	assert.NoError(t, err)
}

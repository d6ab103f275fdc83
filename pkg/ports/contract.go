package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bindery/pkg/domain"
	"github.com/aretw0/bindery/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	ownerID := "contract-test-owner-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		root := tree.FromNative(map[string]any{
			"user":  map[string]any{"name": "ada", "tags": []any{"a", "b"}},
			"count": 42,
			"ratio": 0.5,
			"ok":    true,
			"none":  nil,
		}).(*tree.Object)

		require.NoError(t, store.Save(ctx, ownerID, root), "Save should not return error")

		// Later writes to the saved root must not leak into the store.
		root.Set("count", 0)

		loaded, err := store.Load(ctx, ownerID)
		require.NoError(t, err, "Load should not return error")
		assert.NotSame(t, root, loaded)
		assert.Equal(t, map[string]any{
			"user":  map[string]any{"name": "ada", "tags": []any{"a", "b"}},
			"count": 42,
			"ratio": 0.5,
			"ok":    true,
			"none":  nil,
		}, tree.ToNative(loaded))
	})

	t.Run("Key Order", func(t *testing.T) {
		root := tree.NewObject()
		root.Set("zeta", 1)
		root.Set("alpha", 2)
		root.Set("mid", tree.NewArray(3))

		require.NoError(t, store.Save(ctx, ownerID, root))
		loaded, err := store.Load(ctx, ownerID)
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, loaded.Keys())
	})

	t.Run("Save Nil Root", func(t *testing.T) {
		err := store.Save(ctx, ownerID+"-nil", nil)
		assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+ownerID)
		assert.ErrorIs(t, err, domain.ErrContextNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, ownerID, tree.NewObject()))

		require.NoError(t, store.Delete(ctx, ownerID), "Delete should not return error")

		_, err := store.Load(ctx, ownerID)
		assert.ErrorIs(t, err, domain.ErrContextNotFound, "Load after Delete should return ErrContextNotFound")

		assert.NoError(t, store.Delete(ctx, ownerID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := ownerID + "-1"
		id2 := ownerID + "-2"
		require.NoError(t, store.Save(ctx, id1, tree.NewObject()))
		require.NoError(t, store.Save(ctx, id2, tree.NewObject()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		owners, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, owners, id1)
		assert.Contains(t, owners, id2)
	})
}

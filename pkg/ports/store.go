package ports

import (
	"context"

	"github.com/aretw0/bindery/pkg/tree"
)

// SnapshotStore persists context roots by owner id.
// Stores keep detached copies: the root handed to Save is never retained and
// the root returned by Load carries no traps.
type SnapshotStore interface {
	// Save persists root for ownerID, replacing any previous snapshot.
	Save(ctx context.Context, ownerID string, root *tree.Object) error

	// Load retrieves the snapshot of ownerID.
	// Returns domain.ErrContextNotFound if there is none.
	Load(ctx context.Context, ownerID string) (*tree.Object, error)

	// Delete removes the snapshot of ownerID. Deleting a missing snapshot is
	// not an error.
	Delete(ctx context.Context, ownerID string) error

	// List returns the owner ids with a snapshot.
	List(ctx context.Context) ([]string, error)
}

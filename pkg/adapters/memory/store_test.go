package memory_test

import (
	"testing"

	"github.com/aretw0/bindery/pkg/adapters/memory"
	"github.com/aretw0/bindery/pkg/ports"
)

var _ ports.SnapshotStore = (*memory.Store)(nil)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSnapshotStoreContract(t, store)
}

/*
Package ports defines the driven ports (interfaces) of the bindery engine.

These interfaces decouple the engine from persistence backends.

# Key Interfaces

  - SnapshotStore: persists and restores context roots by owner id.
  - DistributedLocker: serialises snapshot access across processes.

RunSnapshotStoreContract is a reusable test suite every SnapshotStore
implementation should pass.
*/
package ports

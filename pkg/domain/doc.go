/*
Package domain contains the vocabulary shared by the bindery engine and its
collaborators.

It is kept free of I/O and of the engine internals so that adapters (stores,
HTTP, CLI) and UI binding layers can depend on it alone.

# Key Entities

  - Identifier: a dot-delimited path ("a.b.3.c") resolved against a context root.
  - Listener: an owner id, a priority and a callback receiving (new, old).
  - RemovalToken: an idempotent function that deregisters one observation.
  - ArrayChange: the structured record of one array-mutating operation.
  - LifecycleHooks: optional callbacks for engine observability.
*/
package domain

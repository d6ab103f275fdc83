// Package registry maps owner ids to their context roots.
//
// The Registry creates a context manager lazily, on the first write or
// explicit creation for an owner, and destroys it on Dispose. Disposing an
// owner also removes every listener it registered on other owners' roots.
package registry

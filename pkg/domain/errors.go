package domain

import "errors"

// ErrContextNotFound is returned when no context root exists for an owner id,
// either in the registry or in a snapshot store.
var ErrContextNotFound = errors.New("context not found")

// ErrNoStore is returned when persistence is requested without a configured
// snapshot store.
var ErrNoStore = errors.New("no snapshot store configured")

// ErrInvalidSnapshot is returned when a persisted snapshot does not decode to
// an object root.
var ErrInvalidSnapshot = errors.New("snapshot root must be an object")

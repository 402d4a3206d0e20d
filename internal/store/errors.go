package store

import "errors"

// Sentinel errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidRecord indicates a session file that failed to decode or did
	// not match the session record schema. Such files are skipped, never
	// partially loaded.
	ErrInvalidRecord = errors.New("invalid session record")

	// ErrLocked indicates another synthesis run holds the lease.
	ErrLocked = errors.New("synthesis already in progress")
)

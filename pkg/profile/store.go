package profile

import "context"

// Store is the remote profile record store, keyed by identity ID.
// It is the source of truth for profile data; local mirrors are best-effort
// copies maintained by callers.
type Store interface {
	// Get returns the record for the given identity ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*User, error)

	// Put writes the record under its ID with full-overwrite semantics:
	// it creates the record if absent and replaces it entirely if present.
	Put(ctx context.Context, user *User) error
}

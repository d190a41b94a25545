package session

import "github.com/dmitrymomot/sessionkit/pkg/profile"

// Snapshot is the published session state: the resolved user, or nil when
// nobody is signed in, plus a loading flag covering identity resolution.
// IsLoading starts true and flips to false exactly once per identity-state
// event, whether or not resolution succeeded.
type Snapshot struct {
	User      *profile.User
	IsLoading bool
}

// IsAuthenticated reports whether a user is currently resolved.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// clone returns a snapshot whose user is independent of the receiver's, so
// consumers can never mutate coordinator state through a shared pointer.
func (s Snapshot) clone() Snapshot {
	return Snapshot{User: s.User.Clone(), IsLoading: s.IsLoading}
}

package identity

import "context"

// Identity is an authenticated principal as known to the identity provider.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}

// Handler receives identity-state changes. It is called with the new current
// identity, or nil when nobody is signed in.
type Handler func(*Identity)

// Unsubscribe deregisters a previously registered Handler. It is safe to call
// more than once.
type Unsubscribe func()

// Provider abstracts the remote identity provider. Implementations own
// credential verification and token lifecycle; consumers of this interface
// only ever observe identities and state changes.
//
// Subscribe must invoke the handler synchronously with the current identity
// at registration time, and again after every subsequent state change,
// including changes made by callers other than the subscriber.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SetDisplayName(ctx context.Context, id, name string) error
	SignOut(ctx context.Context) error
	Current() *Identity
	Subscribe(fn Handler) Unsubscribe
}

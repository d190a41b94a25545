package session

import "context"

type contextKey struct{}

// WithCoordinator returns a context carrying the shared coordinator so
// request-scoped code can reach the session slot without globals.
func WithCoordinator(ctx context.Context, c *Coordinator) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext extracts the coordinator stored by WithCoordinator.
func FromContext(ctx context.Context) (*Coordinator, bool) {
	c, ok := ctx.Value(contextKey{}).(*Coordinator)
	return c, ok
}

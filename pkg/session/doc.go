// Package session coordinates three representations of user state into one
// reactive "current user" slot: the identity known to the remote identity
// provider, the durable profile record in the remote store, and the
// best-effort mirror in the local cache.
//
// # Architecture
//
// A Coordinator subscribes once to identity-state changes. Each event runs a
// resolution cycle:
//
//	identity event ──► read profile record ──► (bootstrap if absent)
//	        │
//	        ▼
//	write store ≺ write cache mirror ≺ publish snapshot
//
// The published Snapshot (user + loading flag) is distributed through a
// sticky broadcast slot: subscribers immediately receive the current state
// and then every change. Imperative operations — Login, Signup, Logout,
// UpdateUser — mutate remote state first and rely on the same resolution
// machinery to converge the published state.
//
// # Error policy
//
// The coordinator is a boundary: no error crosses it. Login and Signup
// report failure as a bool; Logout and UpdateUser log and keep going. The
// resolution path logs and swallows everything, guaranteeing only that the
// loading flag resolves to false once per event.
//
// UpdateUser publishes optimistically and never rolls back on remote failure.
// That divergence is deliberate and lasts until the next identity event
// re-resolves the record from the store.
//
// # Usage
//
//	provider := identity.NewMemoryProvider()
//	coordinator := session.New(provider, profile.NewMemoryStore(), localcache.NewMemoryCache(),
//	    session.WithLogger(log),
//	)
//	coordinator.Start(ctx)
//	defer coordinator.Close()
//
//	sub := coordinator.Subscribe(ctx)
//	for snap := range sub.Receive() {
//	    render(snap)
//	}
package session

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/broadcast"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/localcache"
	"github.com/dmitrymomot/sessionkit/pkg/profile"
)

// Coordinator keeps the identity provider, the remote profile store and the
// local cache mirror converged on a single published session state.
//
// It owns one subscription to identity-state changes. Every event runs the
// resolution flow: read the profile record, bootstrap it if the identity has
// none yet, mirror it to the local cache and publish the result. The write
// order within one resolution is fixed: profile store, then cache, then
// publish.
//
// No error from the resolution path or from Logout/UpdateUser ever reaches a
// caller; failures are logged and the session is left in whatever state was
// reached. Login and Signup report failure only as a false return.
type Coordinator struct {
	provider identity.Provider
	profiles profile.Store
	cache    localcache.Cache

	logger      *slog.Logger
	now         func() time.Time
	afterLogout func()
	bufferSize  int

	mu          sync.Mutex
	cur         Snapshot
	slot        *broadcast.MemorySlot[Snapshot]
	unsubscribe identity.Unsubscribe
	baseCtx     context.Context
	started     bool
}

// New creates a Coordinator wired to the given collaborators. The published
// state starts as "nobody, loading" until the first identity event resolves.
// Call Start to attach the identity subscription.
func New(provider identity.Provider, profiles profile.Store, cache localcache.Cache, opts ...Option) *Coordinator {
	c := &Coordinator{
		provider:   provider,
		profiles:   profiles,
		cache:      cache,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		bufferSize: 8,
		cur:        Snapshot{IsLoading: true},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.slot = broadcast.NewMemorySlot[Snapshot](c.bufferSize)
	return c
}

// Start registers the identity-state subscription. The provider fires the
// handler synchronously with the current identity, so by the time Start
// returns the first resolution has already run. ctx bounds the subscription:
// when it is cancelled the coordinator closes itself.
//
// Start is idempotent; only the first call attaches the subscription.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.baseCtx = ctx
	c.mu.Unlock()

	unsubscribe := c.provider.Subscribe(c.handleIdentityEvent)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			c.Close()
		}()
	}
}

// Close detaches the identity subscription and closes the snapshot stream.
// It must be called on teardown; a coordinator left subscribed keeps
// receiving provider callbacks after its owner is gone.
func (c *Coordinator) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	_ = c.slot.Close()
}

// Current returns the latest published snapshot. The contained user is a
// private copy.
func (c *Coordinator) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur.clone()
}

// Subscribe returns a stream of snapshots. The latest snapshot is delivered
// immediately, then every subsequent state change. The subscription is
// removed when ctx is cancelled.
func (c *Coordinator) Subscribe(ctx context.Context) broadcast.Subscriber[Snapshot] {
	return c.slot.Subscribe(ctx)
}

// Login verifies credentials with the identity provider and, when the profile
// record already exists, stamps its lastLogin and writes it back to the store
// and the cache mirror. A missing record is not created here: the sign-in
// event triggered by the provider runs the bootstrap. Returns false on any
// failure; nothing is ever raised to the caller.
func (c *Coordinator) Login(ctx context.Context, email, password string) bool {
	id, err := c.provider.SignIn(ctx, email, password)
	if err != nil {
		c.logger.Error("login failed",
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return false
	}

	user, err := c.profiles.Get(ctx, id.ID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			// First sign-in of a pre-existing provider account; the
			// subscription bootstraps the record.
			return true
		}
		c.logger.Error("login failed",
			slog.String("identity_id", id.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return false
	}

	user.LastLogin = c.now()
	if err := c.writeRecord(ctx, user); err != nil {
		c.logger.Error("failed to update last login",
			slog.String("identity_id", id.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return false
	}
	return true
}

// Signup creates the identity at the provider, sets its display name and
// writes a fresh profile record to the store and the cache mirror. The record
// has the same shape the subscription's bootstrap would produce, so the two
// writes racing each other converge on equivalent content. Returns false on
// any failure.
func (c *Coordinator) Signup(ctx context.Context, email, password, name string, role profile.Role) bool {
	id, err := c.provider.SignUp(ctx, email, password)
	if err != nil {
		c.logger.Error("signup failed",
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return false
	}

	if err := c.provider.SetDisplayName(ctx, id.ID, name); err != nil {
		c.logger.Error("failed to set display name",
			slog.String("identity_id", id.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return false
	}

	user := profile.NewUser(id.ID, id.Email, name, role, c.now())
	if err := c.writeRecord(ctx, user); err != nil {
		c.logger.Error("failed to write profile record on signup",
			slog.String("identity_id", id.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return false
	}
	return true
}

// Logout signs out at the provider, publishes the cleared session and runs
// the afterLogout hook. On provider failure it only logs; the published state
// may stay stale until the next identity event.
func (c *Coordinator) Logout(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Error("logout failed",
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return
	}

	c.publish(nil, false)

	if c.afterLogout != nil {
		c.afterLogout()
	}
}

// UpdateUser merges patch into the current user and publishes the result
// immediately, before any remote write. A name change is also pushed to the
// provider's display name. Remote failures are logged and the optimistic
// in-memory state is kept: local and remote may diverge until the next
// identity event reconciles them. When nobody is signed in the call is a
// no-op.
func (c *Coordinator) UpdateUser(ctx context.Context, patch profile.Patch) {
	c.mu.Lock()
	if c.cur.User == nil {
		c.mu.Unlock()
		return
	}
	merged := c.cur.User.Clone()
	patch.Apply(merged)
	c.cur.User = merged
	snap := c.cur
	c.mu.Unlock()

	_ = c.slot.Broadcast(ctx, snap)

	if patch.Name != nil {
		if err := c.provider.SetDisplayName(ctx, merged.ID, *patch.Name); err != nil {
			c.logger.Error("failed to update display name",
				slog.String("identity_id", merged.ID),
				slog.Any("error", err),
				slog.String("component", "session"),
			)
			return
		}
	}

	if err := c.writeRecord(ctx, merged); err != nil {
		c.logger.Error("failed to save user update",
			slog.String("identity_id", merged.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
	}
}

// handleIdentityEvent is the single identity-state subscription handler.
func (c *Coordinator) handleIdentityEvent(id *identity.Identity) {
	c.mu.Lock()
	ctx := c.baseCtx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if id == nil {
		c.publish(nil, false)
		return
	}

	c.setLoading(true)
	defer c.setLoading(false)

	c.resolve(ctx, id)
}

// resolve reads or bootstraps the profile record for id, mirrors it and
// publishes it. Errors are logged and swallowed; a failure leaves the session
// in the partial state reached so far.
func (c *Coordinator) resolve(ctx context.Context, id *identity.Identity) {
	user, err := c.profiles.Get(ctx, id.ID)
	switch {
	case err == nil:
	case errors.Is(err, profile.ErrNotFound):
		user = profile.NewUser(id.ID, id.Email, id.DisplayName, profile.RoleStudent, c.now())
		if err := c.profiles.Put(ctx, user); err != nil {
			c.logger.Error("failed to bootstrap profile record",
				slog.String("identity_id", id.ID),
				slog.Any("error", err),
				slog.String("component", "session"),
			)
			return
		}
	default:
		c.logger.Error("failed to read profile record",
			slog.String("identity_id", id.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return
	}

	if err := c.mirror(ctx, user); err != nil {
		c.logger.Error("failed to mirror profile record",
			slog.String("identity_id", id.ID),
			slog.Any("error", err),
			slog.String("component", "session"),
		)
		return
	}

	c.publishUser(user)
}

// writeRecord performs the store write followed by the cache mirror, in that
// order.
func (c *Coordinator) writeRecord(ctx context.Context, user *profile.User) error {
	if err := c.profiles.Put(ctx, user); err != nil {
		return err
	}
	return c.mirror(ctx, user)
}

// mirror writes the serialized record to the local cache under user_<id>.
func (c *Coordinator) mirror(ctx context.Context, user *profile.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, localcache.UserKey(user.ID), data)
}

// publishUser publishes user without touching the loading flag; the deferred
// setLoading(false) in the event handler flips it afterwards.
func (c *Coordinator) publishUser(user *profile.User) {
	c.mu.Lock()
	c.cur.User = user.Clone()
	snap := c.cur.clone()
	c.mu.Unlock()

	_ = c.slot.Broadcast(context.Background(), snap)
}

// publish replaces both fields of the snapshot at once.
func (c *Coordinator) publish(user *profile.User, loading bool) {
	c.mu.Lock()
	c.cur = Snapshot{User: user.Clone(), IsLoading: loading}
	snap := c.cur.clone()
	c.mu.Unlock()

	_ = c.slot.Broadcast(context.Background(), snap)
}

func (c *Coordinator) setLoading(loading bool) {
	c.mu.Lock()
	c.cur.IsLoading = loading
	snap := c.cur.clone()
	c.mu.Unlock()

	_ = c.slot.Broadcast(context.Background(), snap)
}

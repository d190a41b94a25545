package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/sessionkit/pkg/broadcast"
	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/localcache"
	"github.com/dmitrymomot/sessionkit/pkg/profile"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// memory trio used by the end-to-end style tests; identity events fire
// synchronously, so every state change is observable right after the call
// that caused it.
type fixture struct {
	provider *identity.MemoryProvider
	store    *profile.MemoryStore
	cache    *localcache.MemoryCache
}

func newFixture() *fixture {
	return &fixture{
		provider: identity.NewMemoryProvider(identity.WithBcryptCost(bcrypt.MinCost)),
		store:    profile.NewMemoryStore(),
		cache:    localcache.NewMemoryCache(),
	}
}

func (f *fixture) coordinator(opts ...session.Option) *session.Coordinator {
	return session.New(f.provider, f.store, f.cache, opts...)
}

func drain(sub broadcast.Subscriber[session.Snapshot]) []session.Snapshot {
	var out []session.Snapshot
	for {
		select {
		case s, ok := <-sub.Receive():
			if !ok {
				return out
			}
			out = append(out, s)
		default:
			return out
		}
	}
}

func TestCoordinatorStart(t *testing.T) {
	t.Parallel()

	t.Run("loading until first event resolves", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()

		assert.True(t, c.Current().IsLoading)

		c.Start(context.Background())
		snap := c.Current()
		assert.False(t, snap.IsLoading)
		assert.Nil(t, snap.User)
		assert.False(t, snap.IsAuthenticated())
	})

	t.Run("signed-in identity at startup is resolved immediately", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		f := newFixture()
		id, err := f.provider.SignUp(ctx, "a@b.com", "pw")
		require.NoError(t, err)
		require.NoError(t, f.store.Put(ctx, profile.NewUser(id.ID, id.Email, "Ann", profile.RoleStudent, time.Now())))

		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		snap := c.Current()
		require.NotNil(t, snap.User)
		assert.Equal(t, id.ID, snap.User.ID)
		assert.Equal(t, "Ann", snap.User.Name)
		assert.False(t, snap.IsLoading)
		assert.True(t, snap.IsAuthenticated())
	})

	t.Run("start is idempotent", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()

		c.Start(context.Background())
		c.Start(context.Background())

		sub := c.Subscribe(context.Background())
		events := drain(sub)
		require.Len(t, events, 1) // latest replay only, no duplicated subscription
	})
}

func TestCoordinatorSignup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("student record written to store and mirror", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator(session.WithClock(func() time.Time { return now }))
		defer c.Close()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "a@b.com", "pw", "Ann", profile.RoleStudent))

		id := f.provider.Current()
		require.NotNil(t, id)

		stored, err := f.store.Get(ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, "a@b.com", stored.Email)
		assert.Equal(t, "Ann", stored.Name)
		assert.Equal(t, profile.RoleStudent, stored.Role)
		assert.Empty(t, stored.Password)
		assert.Empty(t, stored.Bio)
		assert.Nil(t, stored.Avatar)
		assert.Equal(t, []string{}, stored.EnrolledCourses)
		assert.Nil(t, stored.CreatedCourses)
		assert.Equal(t, now, stored.LastLogin)

		mirrored, ok := f.cache.Get(localcache.UserKey(id.ID))
		require.True(t, ok)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(mirrored, &raw))
		assert.Equal(t, "Ann", raw["name"])
		assert.NotContains(t, raw, "createdCourses")

		assert.True(t, c.Current().IsAuthenticated())
	})

	t.Run("instructor record carries empty createdCourses", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "i@b.com", "pw", "Ina", profile.RoleInstructor))

		id := f.provider.Current()
		require.NotNil(t, id)
		stored, err := f.store.Get(ctx, id.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.CreatedCourses)
		assert.Empty(t, *stored.CreatedCourses)

		mirrored, ok := f.cache.Get(localcache.UserKey(id.ID))
		require.True(t, ok)
		var raw map[string]any
		require.NoError(t, json.Unmarshal(mirrored, &raw))
		assert.Equal(t, []any{}, raw["createdCourses"])
	})

	t.Run("duplicate email returns false", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "a@b.com", "pw", "Ann", profile.RoleStudent))
		assert.False(t, c.Signup(ctx, "a@b.com", "pw2", "Bob", profile.RoleStudent))
	})
}

func TestCoordinatorLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("success bumps lastLogin only", func(t *testing.T) {
		t.Parallel()

		t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		t1 := t0.Add(time.Hour)
		now := t0

		f := newFixture()
		c := f.coordinator(session.WithClock(func() time.Time { return now }))
		defer c.Close()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "a@b.com", "pw", "Ann", profile.RoleStudent))
		id := f.provider.Current()
		require.NotNil(t, id)

		// Keep some mutable state around so the no-clobber check means something.
		stored, err := f.store.Get(ctx, id.ID)
		require.NoError(t, err)
		stored.Bio = "about me"
		require.NoError(t, f.store.Put(ctx, stored))

		c.Logout(ctx)
		now = t1

		require.True(t, c.Login(ctx, "a@b.com", "pw"))

		after, err := f.store.Get(ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, t1, after.LastLogin)
		assert.True(t, after.LastLogin.After(t0))
		assert.Equal(t, "about me", after.Bio)
		assert.Equal(t, "Ann", after.Name)
	})

	t.Run("bad credentials return false and stay signed out", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		assert.False(t, c.Login(ctx, "ghost@b.com", "pw"))
		assert.False(t, c.Current().IsAuthenticated())
		assert.Equal(t, 0, f.store.Len())
	})
}

func TestCoordinatorLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("clears session and runs hook", func(t *testing.T) {
		t.Parallel()

		var navigated bool
		f := newFixture()
		c := f.coordinator(session.WithAfterLogout(func() { navigated = true }))
		defer c.Close()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "a@b.com", "pw", "Ann", profile.RoleStudent))
		require.True(t, c.Current().IsAuthenticated())

		c.Logout(ctx)

		snap := c.Current()
		assert.Nil(t, snap.User)
		assert.False(t, snap.IsAuthenticated())
		assert.False(t, snap.IsLoading)
		assert.True(t, navigated)
	})
}

func TestCoordinatorUpdateUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("no-op when signed out", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		sub := c.Subscribe(ctx)
		drain(sub) // consume the latest-value replay

		bio := "x"
		c.UpdateUser(ctx, profile.Patch{Bio: &bio})

		assert.Empty(t, drain(sub))
		assert.Equal(t, 0, f.store.Len())
		assert.False(t, c.Current().IsAuthenticated())
	})

	t.Run("merges, publishes and persists", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "a@b.com", "pw", "Ann", profile.RoleStudent))
		id := f.provider.Current()
		require.NotNil(t, id)

		name := "Annie"
		bio := "hello"
		c.UpdateUser(ctx, profile.Patch{Name: &name, Bio: &bio})

		snap := c.Current()
		require.NotNil(t, snap.User)
		assert.Equal(t, "Annie", snap.User.Name)
		assert.Equal(t, "hello", snap.User.Bio)
		assert.Equal(t, "a@b.com", snap.User.Email)

		stored, err := f.store.Get(ctx, id.ID)
		require.NoError(t, err)
		assert.Equal(t, "Annie", stored.Name)
		assert.Equal(t, "hello", stored.Bio)

		current := f.provider.Current()
		require.NotNil(t, current)
		assert.Equal(t, "Annie", current.DisplayName)
	})

	t.Run("bio survives an app restart", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		c := f.coordinator()
		c.Start(ctx)

		require.True(t, c.Signup(ctx, "a@b.com", "pw", "Ann", profile.RoleStudent))
		bio := "x"
		c.UpdateUser(ctx, profile.Patch{Bio: &bio})
		c.Close()

		// A fresh coordinator against the same collaborators resolves the
		// still-signed-in identity from scratch.
		restarted := f.coordinator()
		defer restarted.Close()
		restarted.Start(ctx)

		snap := restarted.Current()
		require.NotNil(t, snap.User)
		assert.Equal(t, "x", snap.User.Bio)
		assert.False(t, snap.IsLoading)
	})
}

func TestCoordinatorResolution(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	newMockCoordinator := func(store *MockStore, cache *MockCache) (*session.Coordinator, *MockProvider) {
		provider := &MockProvider{}
		provider.On("Subscribe", mock.Anything).Return(identity.Unsubscribe(func() {}))
		c := session.New(provider, store, cache, session.WithClock(func() time.Time { return now }))
		c.Start(context.Background())
		return c, provider
	}

	t.Run("bootstraps missing record with student defaults", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(nil, profile.ErrNotFound)
		store.On("Put", mock.Anything, mock.MatchedBy(func(u *profile.User) bool {
			return u.ID == "u1" && u.Email == "a@b.com" && u.Name == "Ann" &&
				u.Role == profile.RoleStudent && u.Password == "" &&
				u.Avatar == nil && u.Bio == "" && len(u.EnrolledCourses) == 0 &&
				u.CreatedCourses == nil && u.LastLogin.Equal(now)
		})).Return(nil)
		cache.On("Set", mock.Anything, "user_u1", mock.MatchedBy(func(b []byte) bool {
			var raw map[string]any
			if err := json.Unmarshal(b, &raw); err != nil {
				return false
			}
			_, hasCreated := raw["createdCourses"]
			return raw["id"] == "u1" && raw["role"] == "student" &&
				raw["password"] == "" && !hasCreated
		})).Return(nil)

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()

		provider.emit(&identity.Identity{ID: "u1", Email: "a@b.com", DisplayName: "Ann"})

		snap := c.Current()
		require.NotNil(t, snap.User)
		assert.Equal(t, "u1", snap.User.ID)
		assert.Equal(t, "Ann", snap.User.Name)
		assert.False(t, snap.IsLoading)

		store.AssertExpectations(t)
		cache.AssertExpectations(t)
		store.AssertNumberOfCalls(t, "Put", 1)
	})

	t.Run("existing record is adopted without writes to the store", func(t *testing.T) {
		t.Parallel()

		existing := profile.NewUser("u1", "a@b.com", "Ann", profile.RoleInstructor, now.Add(-time.Hour))
		existing.Bio = "kept"

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(existing, nil)
		cache.On("Set", mock.Anything, "user_u1", mock.Anything).Return(nil)

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()

		provider.emit(&identity.Identity{ID: "u1", Email: "a@b.com", DisplayName: "Ann"})

		snap := c.Current()
		require.NotNil(t, snap.User)
		assert.Equal(t, "kept", snap.User.Bio)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("loading flag flips exactly once even when resolution fails", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(nil, errors.New("store unavailable"))

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()

		sub := c.Subscribe(context.Background())
		provider.emit(&identity.Identity{ID: "u1", Email: "a@b.com"})

		events := drain(sub)
		require.Len(t, events, 2)
		assert.True(t, events[0].IsLoading)
		assert.False(t, events[1].IsLoading)
		assert.Nil(t, events[1].User)

		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mirror failure skips publish but still resolves loading", func(t *testing.T) {
		t.Parallel()

		existing := profile.NewUser("u1", "a@b.com", "Ann", profile.RoleStudent, now)

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(existing, nil)
		cache.On("Set", mock.Anything, "user_u1", mock.Anything).Return(errors.New("disk full"))

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()

		provider.emit(&identity.Identity{ID: "u1", Email: "a@b.com"})

		snap := c.Current()
		assert.Nil(t, snap.User)
		assert.False(t, snap.IsLoading)
	})

	t.Run("nil identity publishes signed-out without store access", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		cache := &MockCache{}

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()

		sub := c.Subscribe(context.Background())
		provider.emit(nil)

		events := drain(sub)
		require.Len(t, events, 1)
		assert.Nil(t, events[0].User)
		assert.False(t, events[0].IsLoading)

		store.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("login without record relies on subscription bootstrap", func(t *testing.T) {
		t.Parallel()

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(nil, profile.ErrNotFound)

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()

		provider.On("SignIn", mock.Anything, "a@b.com", "pw").
			Return(&identity.Identity{ID: "u1", Email: "a@b.com"}, nil)

		assert.True(t, c.Login(context.Background(), "a@b.com", "pw"))
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("logout provider failure keeps published state", func(t *testing.T) {
		t.Parallel()

		existing := profile.NewUser("u1", "a@b.com", "Ann", profile.RoleStudent, now)

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(existing, nil)
		cache.On("Set", mock.Anything, "user_u1", mock.Anything).Return(nil)

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()
		provider.emit(&identity.Identity{ID: "u1", Email: "a@b.com"})

		provider.On("SignOut", mock.Anything).Return(errors.New("network down"))

		c.Logout(context.Background())
		assert.True(t, c.Current().IsAuthenticated())
	})

	t.Run("update failure keeps the optimistic state", func(t *testing.T) {
		t.Parallel()

		existing := profile.NewUser("u1", "a@b.com", "Ann", profile.RoleStudent, now)

		store := &MockStore{}
		cache := &MockCache{}
		store.On("Get", mock.Anything, "u1").Return(existing, nil)
		cache.On("Set", mock.Anything, "user_u1", mock.Anything).Return(nil).Once()
		store.On("Put", mock.Anything, mock.Anything).Return(errors.New("write rejected"))

		c, provider := newMockCoordinator(store, cache)
		defer c.Close()
		provider.emit(&identity.Identity{ID: "u1", Email: "a@b.com"})

		bio := "optimistic"
		c.UpdateUser(context.Background(), profile.Patch{Bio: &bio})

		snap := c.Current()
		require.NotNil(t, snap.User)
		assert.Equal(t, "optimistic", snap.User.Bio)

		// Store write failed, so the mirror never ran a second time.
		cache.AssertNumberOfCalls(t, "Set", 1)
	})

	t.Run("close detaches the subscription", func(t *testing.T) {
		t.Parallel()

		var unsubscribed bool
		provider := &MockProvider{}
		provider.On("Subscribe", mock.Anything).Return(identity.Unsubscribe(func() { unsubscribed = true }))

		c := session.New(provider, &MockStore{}, &MockCache{})
		c.Start(context.Background())
		c.Close()

		assert.True(t, unsubscribed)
	})
}

func TestCoordinatorSnapshotIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("mutating a received snapshot leaves coordinator state intact", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		id, err := f.provider.SignUp(ctx, "ann@school.edu", "pw")
		require.NoError(t, err)
		require.NoError(t, f.store.Put(ctx, profile.NewUser(id.ID, id.Email, "Ann", profile.RoleStudent, time.Now())))

		c := f.coordinator()
		defer c.Close()
		c.Start(ctx)

		sub := c.Subscribe(ctx)
		snaps := drain(sub) // latest-value replay
		require.NotEmpty(t, snaps)
		got := snaps[len(snaps)-1]
		require.NotNil(t, got.User)

		got.User.Name = "Mallory"
		got.User.EnrolledCourses = append(got.User.EnrolledCourses, "intro-101")

		cur := c.Current()
		require.NotNil(t, cur.User)
		assert.Equal(t, "Ann", cur.User.Name)
		assert.Empty(t, cur.User.EnrolledCourses)
	})
}

package session_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/sessionkit/pkg/identity"
	"github.com/dmitrymomot/sessionkit/pkg/profile"
)

// MockProvider is a mock implementation of identity.Provider. It records the
// subscribed handler so tests can emit identity-state events directly.
type MockProvider struct {
	mock.Mock
	handler identity.Handler
}

func (m *MockProvider) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string) (*identity.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Identity), args.Error(1)
}

func (m *MockProvider) SetDisplayName(ctx context.Context, id, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProvider) Current() *identity.Identity {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*identity.Identity)
}

func (m *MockProvider) Subscribe(fn identity.Handler) identity.Unsubscribe {
	m.handler = fn
	args := m.Called(fn)
	return args.Get(0).(identity.Unsubscribe)
}

// emit drives the captured subscription handler, mimicking a provider-side
// state change.
func (m *MockProvider) emit(id *identity.Identity) {
	m.handler(id)
}

// MockStore is a mock implementation of profile.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Get(ctx context.Context, id string) (*profile.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.User), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, user *profile.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockCache is a mock implementation of localcache.Cache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

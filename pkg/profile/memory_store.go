package profile

import (
	"context"
	"sync"
)

// MemoryStore implements Store using in-process storage. It is intended for
// tests and single-process applications that do not need a remote store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*User),
	}
}

// Get retrieves a record by identity ID.
func (m *MemoryStore) Get(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return user.Clone(), nil
}

// Put stores a copy of the record, creating or fully replacing it.
func (m *MemoryStore) Put(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[user.ID] = user.Clone()
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

var _ Store = (*MemoryStore)(nil)

package localcache

import (
	"context"
	"sync"
)

// MemoryCache implements Cache with an in-process map. Useful for tests and
// for hosts that keep their offline mirror in memory.
type MemoryCache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		values: make(map[string][]byte),
	}
}

// Set stores a copy of value under key.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = append([]byte(nil), value...)
	return nil
}

// Get returns the stored value and whether the key exists. The session layer
// never reads the mirror; this accessor exists for the offline collaborators
// that do.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.values[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

var _ Cache = (*MemoryCache)(nil)

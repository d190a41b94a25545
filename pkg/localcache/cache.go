package localcache

import (
	"context"
	"errors"
)

// Cache is the device-local mirror written alongside the remote profile
// store. The session layer only ever writes to it; offline reads are the
// business of other collaborators, so Set is the whole consumed surface.
type Cache interface {
	Set(ctx context.Context, key string, value []byte) error
}

var ErrEmptyKey = errors.New("empty cache key")

const userKeyPrefix = "user_"

// UserKey returns the mirror key for a profile record.
func UserKey(id string) string {
	return userKeyPrefix + id
}

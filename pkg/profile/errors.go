package profile

import "errors"

var (
	ErrNotFound    = errors.New("profile record not found")
	ErrInvalidUser = errors.New("invalid profile record")
)

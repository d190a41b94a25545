package identity

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrNotSignedIn        = errors.New("not signed in")
)

package security

import "errors"

var (
	ErrMissingSecret     = errors.New("security: missing token secret")
	ErrInvalidToken      = errors.New("security: invalid token")
	ErrRealmMismatch     = errors.New("security: token realm does not match connection realm")
	ErrUsernameMismatch  = errors.New("security: token username does not match connection username")
	ErrAnonymousDisabled = errors.New("security: anonymous connections are disabled")
	ErrMissingRealm      = errors.New("security: missing realm")
)

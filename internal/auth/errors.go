package auth

import "errors"

var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrNoSecret     = errors.New("auth: signing secret is not configured")
)

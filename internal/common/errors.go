// Package common defines shared constants and sentinel errors used across
// the client and server layers of authkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password. The two cases must stay indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

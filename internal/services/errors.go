package services

import "errors"

var (
	// ErrValidation is returned when a request fails business validation.
	// The wrapped message is safe to show to the client.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a request is well-formed but cannot be
	// applied to the current state (deletion guards, reversed sales).
	ErrConflict = errors.New("operation conflicts with current state")

	// ErrUnauthorized is returned for failed logins and revoked sessions.
	ErrUnauthorized = errors.New("unauthorized")
)

package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrUnauthorized indicates the resource API rejected the access token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoCachedToken indicates no usable token exists for the user.
	// Recoverable: callers start a fresh interactive authorization instead
	// of surfacing an error page.
	ErrNoCachedToken = errors.New("no cached token")

	// ErrRefreshRejected indicates the provider refused the refresh token
	ErrRefreshRejected = errors.New("refresh token rejected")

	// ErrSessionInvalid indicates the session token is malformed or expired
	ErrSessionInvalid = errors.New("session invalid")
)

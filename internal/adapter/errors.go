package adapter

import (
	"errors"
)

var (
	// ErrUnauthorized is returned when the calendar provider rejects the credential.
	ErrUnauthorized = errors.New("calendar source rejected credential")

	// ErrUpstream is returned for network or provider-side failures.
	ErrUpstream = errors.New("calendar source unavailable")

	// ErrNotFound is returned when a requested calendar does not exist.
	ErrNotFound = errors.New("calendar not found")
)

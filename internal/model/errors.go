package model

import "errors"

var (
	// ErrNotFound is returned by storage lookups for absent keys.
	ErrNotFound = errors.New("not found")
	// ErrNoRefreshToken means renewal was attempted without a stored
	// refresh credential.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrNoSession means an operation required an active session.
	ErrNoSession = errors.New("no active session")
)

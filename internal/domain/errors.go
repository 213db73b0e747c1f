package domain

import "errors"

var (
	// ErrNotFound reports an operation against a user id never seen.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidInput reports malformed administrative input.
	ErrInvalidInput = errors.New("invalid input")
)

package analysis

import "errors"

var (
	// ErrInvalidRequest marks caller input that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUpstreamUnavailable marks a required collaborator that failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrStoreDisabled is returned by record-store operations when no store is configured.
	ErrStoreDisabled = errors.New("record store not configured")
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

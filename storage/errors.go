package storage

import "errors"

var (
	// ErrRunNotFound is returned when no record exists for a run ID.
	ErrRunNotFound = errors.New("run not found")
	// ErrInvalidRunID rejects IDs that cannot be used as a key or file name.
	ErrInvalidRunID = errors.New("invalid run id")
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")
)

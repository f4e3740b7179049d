package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrVersionConflict indicates a compare-and-set update lost the race to a
	// concurrent writer; the caller should re-read and retry.
	ErrVersionConflict = errors.New("repository: version conflict")
)

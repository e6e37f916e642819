package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrStateConflict is returned when a guarded state update matches no row,
	// meaning the job already left the states the transition is allowed from.
	ErrStateConflict = errors.New("job state conflict")
)

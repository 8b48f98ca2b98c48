package repository

import "errors"

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique index rejects a write.
	ErrConflict = errors.New("conflict")
	// ErrInvalidID is returned when an id is not a valid ObjectID.
	ErrInvalidID = errors.New("invalid id")
)

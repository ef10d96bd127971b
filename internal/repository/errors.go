package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a conditional write finds the row in an unexpected state.
	ErrConflict = errors.New("conditional write rejected")
)

package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, e.g. a payment event reference that was seen before.
	ErrDuplicate = errors.New("entity already exists")

	// ErrStaleState is returned when a conditional update finds the row
	// changed since it was read.
	ErrStaleState = errors.New("entity modified concurrently")
)

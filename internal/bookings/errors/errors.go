package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrConflict is returned when a conditional status write matched nothing
	// because another request changed the booking first.
	ErrConflict = errors.New("booking status changed concurrently")

	// ErrDuplicateActive is returned when the student already holds an active
	// booking for the property.
	ErrDuplicateActive = errors.New("student already has an active booking for this property")

	ErrLockHeld = errors.New("booking lock already held")
)

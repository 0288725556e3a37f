package errors

import "errors"

var (
	ErrNotFound = errors.New("review not found")

	ErrInvalidID = errors.New("invalid review ID format")

	// ErrDuplicate is returned when the booking has already been reviewed.
	ErrDuplicate = errors.New("booking already reviewed")
)

package errors

import "errors"

var (
	ErrNotFound = errors.New("notification not found")

	ErrInvalidID = errors.New("invalid notification ID format")

	// ErrDuplicate is returned when the recipient already has a notification
	// for the event.
	ErrDuplicate = errors.New("notification already recorded for event")
)

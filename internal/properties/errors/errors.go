package errors

import "errors"

var (
	ErrNotFound = errors.New("property not found")

	ErrInvalidID = errors.New("invalid property ID format")

	// ErrNoCapacity is returned when an occupancy increment would exceed total rooms.
	ErrNoCapacity = errors.New("property has no free rooms")

	// ErrNoOccupancy is returned when an occupancy decrement would go below zero.
	ErrNoOccupancy = errors.New("property occupancy already zero")

	ErrBelowOccupancy = errors.New("total rooms cannot drop below current occupancy")
)

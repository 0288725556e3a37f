package errors

import "errors"

var (
	ErrNotFound = errors.New("user not found")

	ErrInvalidID = errors.New("invalid user ID format")

	ErrPromotionNotFound = errors.New("promotion request not found")

	// ErrPendingPromotion is returned when the user already has a request
	// awaiting review.
	ErrPendingPromotion = errors.New("promotion request already pending")

	ErrPromotionReviewed = errors.New("promotion request already reviewed")
)

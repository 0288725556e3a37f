package validator

import (
	"time"

	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// maxLeadTime bounds how far ahead a booking may start.
const maxLeadTime = 2 * 365 * 24 * time.Hour

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	return &BookingValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// Validate checks a booking request. Check-in may be today but not earlier.
func (v *BookingValidator) Validate(input *model.BookingCreate, now time.Time) error {
	if err := validation.Struct(v.validate, input); err != nil {
		return err
	}

	today := now.UTC().Truncate(24 * time.Hour)
	if input.CheckInDate.Before(today) {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "check_in_date",
				Message: "check_in_date cannot be in the past",
			},
		}
	}
	if input.CheckInDate.After(now.Add(maxLeadTime)) {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "check_in_date",
				Message: "check_in_date must be within two years",
			},
		}
	}

	return nil
}

func (v *BookingValidator) ValidateReason(input *model.BookingReason) error {
	return validation.Struct(v.validate, input)
}

func (v *BookingValidator) ValidatePayment(input *model.PaymentVerification) error {
	return validation.Struct(v.validate, input)
}

func (v *BookingValidator) ValidateAdminUpdate(input *model.AdminBookingUpdate) error {
	return validation.Struct(v.validate, input)
}

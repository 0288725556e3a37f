package validator

import (
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type PropertyValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewPropertyValidator(log *logger.Logger) *PropertyValidator {
	return &PropertyValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *PropertyValidator) Validate(property *model.PropertyCreate) error {
	if err := validation.Struct(v.validate, property); err != nil {
		return err
	}

	if property.RoomTypes.Total() == 0 {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "room_types",
				Message: "at least one room is required",
			},
		}
	}

	return nil
}

func (v *PropertyValidator) ValidateUpdate(update *model.PropertyUpdate) error {
	if err := validation.Struct(v.validate, update); err != nil {
		return err
	}

	if update.RoomTypes != nil && update.RoomTypes.Total() == 0 {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "room_types",
				Message: "at least one room is required",
			},
		}
	}

	return nil
}

func (v *PropertyValidator) ValidateModeration(decision *model.ModerationDecision) error {
	if err := validation.Struct(v.validate, decision); err != nil {
		return err
	}

	switch model.PropertyStatus(decision.Status) {
	case model.PropertyApproved, model.PropertyRejected:
		return nil
	}

	return validation.ValidationErrors{
		validation.ValidationError{
			Field:   "status",
			Message: "status must be one of: approved rejected",
		},
	}
}

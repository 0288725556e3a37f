package validator

import (
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type MessageValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewMessageValidator(log *logger.Logger) *MessageValidator {
	return &MessageValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// Validate requires either a thread to reply to or a property to ask about.
func (v *MessageValidator) Validate(input *model.MessageCreate) error {
	if err := validation.Struct(v.validate, input); err != nil {
		return err
	}

	if input.ThreadID == "" && input.PropertyID == "" {
		return validation.ValidationErrors{
			validation.ValidationError{
				Field:   "thread_id",
				Message: "thread_id or property_id is required",
			},
		}
	}

	return nil
}

package validator

import (
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type ReviewValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReviewValidator(log *logger.Logger) *ReviewValidator {
	return &ReviewValidator{
		validate: validation.New(),
		logger:   log,
	}
}

func (v *ReviewValidator) Validate(input *model.ReviewCreate) error {
	return validation.Struct(v.validate, input)
}

func (v *ReviewValidator) ValidateResponse(response *model.ReviewResponse) error {
	return validation.Struct(v.validate, response)
}

func (v *ReviewValidator) ValidateModeration(moderation *model.ReviewModeration) error {
	return validation.Struct(v.validate, moderation)
}

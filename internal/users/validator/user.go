package validator

import (
	"unistay/pkg/logger"
	"unistay/pkg/model"
	"unistay/pkg/sanitizer"
	"unistay/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type UserValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewUserValidator(log *logger.Logger) *UserValidator {
	return &UserValidator{
		validate: validation.New(),
		logger:   log,
	}
}

// ValidateProfile checks a profile patch and rewrites a present phone
// number to E.164.
func (v *UserValidator) ValidateProfile(update *model.ProfileUpdate) error {
	if err := validation.Struct(v.validate, update); err != nil {
		return err
	}

	if update.Phone != nil && *update.Phone != "" {
		normalized, err := phone("phone", *update.Phone)
		if err != nil {
			return err
		}
		*update.Phone = normalized
	}

	return nil
}

func (v *UserValidator) ValidatePromotion(input *model.PromotionCreate) error {
	if err := validation.Struct(v.validate, input); err != nil {
		return err
	}

	normalized, err := phone("phone", input.Phone)
	if err != nil {
		return err
	}
	input.Phone = normalized
	return nil
}

func (v *UserValidator) ValidateReview(review *model.PromotionReview) error {
	return validation.Struct(v.validate, review)
}

func (v *UserValidator) ValidateBlacklist(req *model.BlacklistRequest) error {
	return validation.Struct(v.validate, req)
}

func (v *UserValidator) ValidateRole(change *model.RoleChange) error {
	return validation.Struct(v.validate, change)
}

func (v *UserValidator) ValidateCode(code *model.TwoFactorCode) error {
	return validation.Struct(v.validate, code)
}

func phone(field, raw string) (string, error) {
	normalized := sanitizer.NormalizePhone(raw)
	if normalized == "" {
		return "", validation.ValidationErrors{
			validation.ValidationError{
				Field:   field,
				Message: "phone must be a valid phone number",
			},
		}
	}
	return normalized, nil
}

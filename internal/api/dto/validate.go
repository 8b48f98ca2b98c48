package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and reports failing fields as a VALIDATION_FAILED error.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[jsonName(fe.Field())] = fe.Tag()
	}
	return apperrors.NewValidationError("invalid payload", details)
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	if field == "ISBN" {
		return "isbn"
	}
	return strings.ToLower(field[:1]) + field[1:]
}

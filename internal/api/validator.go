package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tsanders-rh/lactl/internal/policy"
)

// CustomValidator wraps the validator instance
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate validates a struct
func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// toValidationResult converts validator errors into field errors
func toValidationResult(err error) *policy.ValidationResult {
	result := &policy.ValidationResult{Valid: true}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.AddError("body", err.Error())
		return result
	}

	for _, fe := range fieldErrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		result.AddError(fe.Field(), msg)
	}
	return result
}

package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// validationDetails flattens validator errors for ErrorResponse.Details.
func validationDetails(err error) ([]FieldError, string) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return nil, "Invalid input"
	}

	details := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		details = append(details, FieldError{Field: e.Field(), Rule: e.Tag()})
	}

	first := errs[0]
	switch first.Tag() {
	case "required":
		return details, fmt.Sprintf("%s is required", first.Field())
	default:
		return details, fmt.Sprintf("%s is invalid", first.Field())
	}
}

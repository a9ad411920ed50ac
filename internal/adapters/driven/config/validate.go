package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/stache-cli/internal/core/domain"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

// validatorInstance returns the shared validator. Field names in errors are
// the configuration key names.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("key"); name != "" {
				return name
			}
			return f.Name
		})
		validateInst = v
	})
	return validateInst
}

// convertValidationError turns the first validator failure into a domain.ValidationError.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return &domain.ValidationError{Field: "config", Message: err.Error()}
	}

	fe := ves[0]
	return &domain.ValidationError{Field: fe.Field(), Message: describe(fe)}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "http_url":
		return fmt.Sprintf("must be an http:// or https:// URL (got %q)", fe.Value())
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gtefield":
		return "must not be less than retry_base_delay"
	}
	return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
}

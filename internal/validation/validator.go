// Package validation wraps go-playground/validator and converts its failures
// into field-level domain validation errors.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrlokans/librarian/internal/errors"
)

type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their json or mapstructure tag name.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "mapstructure"} {
			name := fld.Tag.Get(key)
			if name == "" || name == "-" {
				continue
			}
			if i := strings.IndexByte(name, ','); i >= 0 {
				name = name[:i]
			}
			return name
		}
		return fld.Name
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var checks a single value against a rule string such as "email,max=255".
// It returns a friendly message and false when the value fails.
func (v *Validator) Var(value any, rules string) (string, bool) {
	if rules == "" {
		return "", true
	}
	err := v.v.Var(value, rules)
	if err == nil {
		return "", true
	}
	var validationErrs validator.ValidationErrors
	if stderrors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return friendlyMessage(validationErrs[0]), false
	}
	return "is invalid", false
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string)
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}

	return errors.ValidationWithDetails("validation failed", fieldErrors)
}

//nolint:gocyclo
func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "numeric":
		return "must be numeric"
	case "e164":
		return "must be a phone number in international format"
	case "cron":
		return "must be a valid cron expression"
	case "hostname_port":
		return "must be a host:port pair"
	default:
		return "is invalid"
	}
}

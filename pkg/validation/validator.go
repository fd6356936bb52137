package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// Tag rules shared by every package that names logs.
const (
	// LogNameRules keeps a name usable as a single path element.
	LogNameRules = "required,max=128,printascii,excludesall=/\\"
)

// ValidateStruct validates s against its `validate` struct tags.
func ValidateStruct(s any) error {
	if s == nil {
		return errors.New("value to validate cannot be nil")
	}
	return formatValidationError(validate.Struct(s))
}

// ValidateVar validates a single value against tag rules. field names the
// value in the returned error.
func ValidateVar(field string, value any, rules string) error {
	err := validate.Var(value, rules)
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s%w", field, formatValidationError(err))
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "excludesall":
			return fmt.Errorf("%s: must not contain any of %q", field, param)
		case "printascii":
			return fmt.Errorf("%s: must contain printable ASCII only", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}

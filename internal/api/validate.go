package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for input payloads. Field names
// in messages use JSON tags so they match what users see on the wire.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}

		return name
	})

	return v
}

// validateInput checks a payload against its validate tags and converts
// failures into a single ErrValidation-classed error. This rejects bad
// input before any network call; the backend repeats the checks
// authoritatively.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("api: validating input: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}

	return fmt.Errorf("api: %s: %w", strings.Join(msgs, "; "), ErrValidation)
}

// fieldMessage renders one field error in plain language.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + ": required"
	case "email":
		return fe.Field() + ": must be a valid email address"
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s: must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s: invalid value (%s)", fe.Field(), fe.Tag())
	}
}

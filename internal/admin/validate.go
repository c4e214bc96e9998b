package admin

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var clockTime = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// formValidator is shared; validator.Validate caches struct metadata and is
// safe for concurrent use.
var formValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		return clockTime.MatchString(fl.Field().String())
	})
	return v
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "hexcolor":
		return "must be a hex color such as #2563EB"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "clocktime":
		return "must be a time formatted as HH:MM"
	case "nefield":
		return fmt.Sprintf("must differ from %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// fieldPath turns "BusLineForm.stops[1].name" into "stops[1].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// check runs the struct tags of form and returns a *ValidationError that
// callers may extend with their own checks.
func check(form any) (*ValidationError, error) {
	verr := &ValidationError{}
	err := formValidator.Struct(form)
	if err == nil {
		return verr, nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil, fmt.Errorf("validate form: %w", err)
	}
	for _, fe := range ves {
		verr.add(fieldPath(fe), message(fe))
	}
	return verr, nil
}

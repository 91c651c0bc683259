// Package validation checks a single candidate document for structural and
// business validity. Validators do no I/O and are deterministic: the same
// document always yields the same violations.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/upb/waqf-policy-engine/services"
)

// validate is the singleton validator instance. Field names are reported by
// their json tag so violations name the wire field.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct runs the struct tag rules of s and converts failures into violations
func Struct(s interface{}) []services.Violation {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []services.Violation{
			services.NewViolation(services.ErrorTypeStructuralInvalid, "", err.Error()),
		}
	}

	violations := make([]services.Violation, 0, len(validationErrors))
	for _, fe := range validationErrors {
		field := fieldPath(fe)
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid, field, message(field, fe)))
	}
	return violations
}

// fieldPath drops the struct type name from the namespace: "Waqf.donor.email" -> "donor.email"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s validation failed on '%s' tag", field, fe.Tag())
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

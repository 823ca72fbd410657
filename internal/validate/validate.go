// Package validate checks form input structs with go-playground/validator
// and turns failures into per-field messages.
package validate

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report errors under the form field name.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Errors maps form field names to a human-readable message.
type Errors map[string]string

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e[keys[0]]
}

// Struct validates v and returns Errors on failure.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

// FieldErrors extracts Errors from err, or nil.
func FieldErrors(err error) Errors {
	var e Errors
	if errors.As(err, &e) {
		return e
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label(fe.Field()) + " is required"
	case "email":
		return "Please enter a valid email address"
	case "min":
		if isPassword(fe.Field()) {
			return "Password must be at least " + fe.Param() + " characters"
		}
		return label(fe.Field()) + " must be at least " + fe.Param() + " characters"
	case "eqfield":
		return "Passwords do not match"
	case "oneof":
		return label(fe.Field()) + " must be one of: " + fe.Param()
	default:
		return label(fe.Field()) + " is invalid"
	}
}

func isPassword(field string) bool {
	return strings.Contains(strings.ToLower(field), "password")
}

var labels = map[string]string{
	"firstName":       "First name",
	"lastName":        "Last name",
	"email":           "Email",
	"password":        "Password",
	"confirmPassword": "Confirm password",
	"newPassword":     "New password",
	"role":            "Role",
	"token":           "Reset token",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

// Package forms validates the input of the account screens.
package forms

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Login is the login form.
type Login struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// ForgotPassword is the password recovery form.
type ForgotPassword struct {
	Email string `form:"email" validate:"required,email"`
}

// PasswordReset is the new-password form.
type PasswordReset struct {
	Password       string `form:"newPassword" validate:"required,min=8,has_upper,has_lower,has_digit,has_special"`
	RepeatPassword string `form:"repeatPassword" validate:"required,eqfield=Password"`
}

// Errors maps a form field to its first problem.
type Errors map[string]string

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	slices.Sort(parts)
	return strings.Join(parts, "; ")
}

// messages per form field and validation tag; "" matches any field.
var messages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Invalid email address",
	},
	"password": {
		"required": "Password is required",
	},
	"newPassword": {
		"min":         "Password must be at least 8 characters",
		"has_upper":   "Password must contain at least one uppercase letter",
		"has_lower":   "Password must contain at least one lowercase letter",
		"has_digit":   "Password must contain at least one number",
		"has_special": "Password must contain at least one special character",
	},
	"repeatPassword": {
		"eqfield": "Passwords must match",
	},
	"": {
		"required": "Required",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("form"), ","); name != "" {
			return name
		}
		return f.Name
	})
	for tag, pred := range map[string]func(rune) bool{
		"has_upper":   unicode.IsUpper,
		"has_lower":   unicode.IsLower,
		"has_digit":   unicode.IsDigit,
		"has_special": isSpecial,
	} {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return strings.IndexFunc(fl.Field().String(), pred) >= 0
		}); err != nil {
			panic(err)
		}
	}
	return v
}

func isSpecial(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

// Validate checks a form and returns Errors, or nil when it is valid.
func Validate(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = message(field, fe.Tag())
	}
	return out
}

func message(field, tag string) string {
	if msg, ok := messages[field][tag]; ok {
		return msg
	}
	if msg, ok := messages[""][tag]; ok {
		return msg
	}
	return "Invalid value"
}

// FieldErrors extracts the per-field messages from err.
func FieldErrors(err error) Errors {
	var fe Errors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

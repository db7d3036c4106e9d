package handler

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// passwordSpecials are the special characters a strong password may use.
const passwordSpecials = "@$!%*?&"

// Validator adapts go-playground/validator to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds the validator used by every handler.  Field names in
// error messages follow the JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// passwordRune reports whether r is an ASCII letter, a digit or one of
// passwordSpecials.
func passwordRune(r rune) bool {
	return (r < unicode.MaxASCII && unicode.IsLetter(r)) ||
		(r >= '0' && r <= '9') ||
		strings.ContainsRune(passwordSpecials, r)
}

// StrongPassword reports whether s has at least one lowercase letter, one
// uppercase letter, one digit and one of the allowed special characters.
// The first character must itself be one of those classes.
func StrongPassword(s string) bool {
	var lower, upper, digit, special bool
	for i, r := range s {
		if i == 0 && !passwordRune(r) {
			return false
		}
		switch {
		case r < unicode.MaxASCII && unicode.IsLower(r):
			lower = true
		case r < unicode.MaxASCII && unicode.IsUpper(r):
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return lower && upper && digit && special
}

// validationMessage turns a bind or validator error into a client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters long"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters long"
	case "strongpassword":
		return "password must contain at least one uppercase letter, one lowercase letter, one number and one special character"
	}
	return fe.Field() + " is invalid"
}

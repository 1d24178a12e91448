// Package validation wraps go-playground/validator with the account rules used by
// signup, profile edits and the access-request questionnaire. Failures translate
// into VALIDATION_FAILED domain errors carrying one message per field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/credit-ledger/pkg/util"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// Validator checks request structs against struct tags plus the custom
// "strongpassword", "emaildomain" and "pin" rules.
type Validator struct {
	validate    *validator.Validate
	emailDomain string
}

// New builds a validator that accepts only addresses ending in @emailDomain.
// An empty domain accepts any well-formed address.
func New(emailDomain string) *Validator {
	v := &Validator{
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		emailDomain: strings.TrimPrefix(strings.ToLower(emailDomain), "@"),
	}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.validate.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return len(PasswordProblems(fl.Field().String())) == 0
	})
	_ = v.validate.RegisterValidation("emaildomain", func(fl validator.FieldLevel) bool {
		return v.domainAllowed(fl.Field().String())
	})
	_ = v.validate.RegisterValidation("pin", func(fl validator.FieldLevel) bool {
		return IsPin(fl.Field().String())
	})
	return v
}

// EmailDomain returns the accepted domain suffix without the "@".
func (v *Validator) EmailDomain() string {
	return v.emailDomain
}

// Struct validates s and returns nil or a VALIDATION_FAILED error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	details := make(map[string]any, len(fieldErrs))
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := v.message(fe)
		details[fe.Field()] = msg
		messages = append(messages, msg)
	}
	return apperrors.NewValidationError(strings.Join(messages, "; "), details)
}

func (v *Validator) domainAllowed(email string) bool {
	if v.emailDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+v.emailDomain)
}

func (v *Validator) message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "emaildomain":
		return fmt.Sprintf("only @%s addresses are allowed", v.emailDomain)
	case "strongpassword":
		return strings.Join(PasswordProblems(fe.Value().(string)), "; ")
	case "pin":
		return "PIN must be exactly 6 digits"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// PasswordProblems lists every strength rule the password breaks.
func PasswordProblems(password string) []string {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	var problems []string
	if len(password) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if !lower {
		problems = append(problems, "password must contain a lowercase letter")
	}
	if !upper {
		problems = append(problems, "password must contain an uppercase letter")
	}
	if !digit {
		problems = append(problems, "password must contain a number")
	}
	if !symbol {
		problems = append(problems, "password must contain a special character")
	}
	return problems
}

// IsPin reports whether pin is exactly six ASCII digits.
func IsPin(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

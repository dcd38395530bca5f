package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUserNotFound is returned when no user has the requested id.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when another user already has the email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidCredentials is returned for any failed login, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token cannot be trusted.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError reports input the caller can correct and resubmit.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// newValidator returns a validator that reports fields by their JSON name.
// It also knows the bcrypt_len rule, which limits a password to what bcrypt
// can hash.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= maxPasswordBytes
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldsError builds a ValidationError whose message lists every field reason
// in a stable order.
func fieldsError(fields map[string]string) *ValidationError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	reasons := make([]string, 0, len(names))
	for _, name := range names {
		reasons = append(reasons, fields[name])
	}
	return &ValidationError{
		Message: strings.Join(reasons, "; "),
		Fields:  fields,
	}
}

// translateValidation converts validator output into a ValidationError.
func translateValidation(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("validate input: %w", err)
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		fields[e.Field()] = fieldReason(e.Field(), e.Tag(), e.Param())
	}
	return fieldsError(fields)
}

func fieldReason(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "bcrypt_len":
		return fmt.Sprintf("%s must be at most %d bytes", field, maxPasswordBytes)
	default:
		return fmt.Sprintf("%s failed on the '%s' rule", field, tag)
	}
}

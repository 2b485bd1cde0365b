package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("you do not have permission to perform this action")
	ErrUnauthenticated    = errors.New("authentication credentials were not provided")
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// NonFieldErrors is the ValidationError key for problems not tied to a field.
const NonFieldErrors = "non_field_errors"

// ValidationError collects field-level validation messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns a ValidationError with a single message.
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add records a message for field.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string][]string)
	}
	v.Fields[field] = append(v.Fields[field], message)
}

// Addf records a formatted message for field.
func (v *ValidationError) Addf(field, format string, args ...interface{}) {
	v.Add(field, fmt.Sprintf(format, args...))
}

// OrNil returns v if any message was recorded, nil otherwise.
func (v *ValidationError) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(v.Fields[k], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// notFound maps gorm's missing-record error to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// duplicate maps a unique-constraint violation to a ValidationError so that
// a concurrent insert that lost the race reads like the pre-insert check.
func duplicate(err error, field string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return NewValidationError(field, "already exists")
	}
	return err
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports a lookup by id that matched no row.
type ErrNotFound struct {
	Table Table
	ID    string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Table, e.ID)
}

// ValidationError reports a client payload that failed field-level checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError without a field.
func Invalid(format string, args ...any) error {
	return ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// IsValidation reports whether err wraps ValidationError.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// MissingFields builds the error returned when required fields are absent.
func MissingFields(fields []string) error {
	return ValidationError{Message: "missing required fields: " + strings.Join(fields, ", ")}
}

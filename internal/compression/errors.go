package compression

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the input is empty or whitespace only.
var ErrEmptyInput = errors.New("empty input")

// ValidationError describes a rejected option or table entry.
type ValidationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Err   error  `json:"error"`
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field string, value any, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, fmt.Sprint(e.Value), e.Err)
	}
	return fmt.Sprintf("invalid %s", e.Field)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsValidationError extracts the ValidationError wrapped by err, or nil.
func AsValidationError(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

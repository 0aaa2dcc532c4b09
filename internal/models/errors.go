package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a chat, message, auto-reply or identity
// does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports a rejected input field. Validation always runs
// before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package domain

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every domain validation failure.
// Callers test for it with errors.Is to map the failure to a client error.
var ErrValidation = errors.New("validation failed")

// Field-level validation errors. Each wraps ErrValidation.
var (
	ErrEmptyAccountID    = fmt.Errorf("%w: account ID cannot be empty", ErrValidation)
	ErrEmptyDisplayName  = fmt.Errorf("%w: display name cannot be empty", ErrValidation)
	ErrEmptyEmail        = fmt.Errorf("%w: email cannot be empty", ErrValidation)
	ErrInvalidEmail      = fmt.Errorf("%w: invalid email format", ErrValidation)
	ErrEmptyPassword     = fmt.Errorf("%w: password cannot be empty", ErrValidation)
	ErrPasswordTooShort  = fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, MinPasswordLength)
	ErrPasswordTooLong   = fmt.Errorf("%w: password must be at most %d characters long", ErrValidation, MaxPasswordLength)
	ErrEmptyPasswordHash = fmt.Errorf("%w: password hash cannot be empty", ErrValidation)
	ErrEmptyProvider     = fmt.Errorf("%w: identity provider cannot be empty", ErrValidation)
	ErrEmptySubjectID    = fmt.Errorf("%w: provider subject ID cannot be empty", ErrValidation)
	ErrMissingAuthMethod = fmt.Errorf("%w: account must have exactly one auth method", ErrValidation)
	ErrEmptyPushToken    = fmt.Errorf("%w: push token cannot be empty", ErrValidation)

	ErrInvalidClubID    = fmt.Errorf("%w: club ID must be a positive integer", ErrValidation)
	ErrEmptyClubName    = fmt.Errorf("%w: club name cannot be empty", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: club description cannot be empty", ErrValidation)
	ErrInvalidCategory  = fmt.Errorf("%w: unknown club category", ErrValidation)
)

// ValidationError describes a single invalid input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field. When err is nil the
// error wraps ErrValidation.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

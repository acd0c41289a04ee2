package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., an account with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation or a
	// database constraint before being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrStoreUnavailable is returned when the store could not answer within
	// its time budget or the connection failed. Nothing was written; the
	// operation is safe to retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflict marks a transaction aborted by a serialization failure or
	// deadlock. Transactors retry it before surfacing ErrStoreUnavailable.
	ErrConflict = errors.New("transaction conflict")

	// ErrTxRequired is returned by operations that are only safe inside a transaction.
	ErrTxRequired = errors.New("operation requires a transaction")

	// ErrAccountNotFound indicates that the requested account does not exist.
	ErrAccountNotFound = fmt.Errorf("%w: account", ErrNotFound)

	// ErrClubNotFound indicates that the requested club does not exist.
	ErrClubNotFound = fmt.Errorf("%w: club", ErrNotFound)

	// ErrEmailExists indicates that an account with the given email already exists,
	// compared case-insensitively and regardless of its auth method.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrSubjectExists indicates that the external subject is already bound to an account.
	ErrSubjectExists = fmt.Errorf("%w: provider subject", ErrDuplicate)

	// ErrClubExists indicates that a club with the same id or name already exists.
	ErrClubExists = fmt.Errorf("%w: club", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsRetryable reports whether err is transient: the caller may retry the
// whole operation and expect a different outcome.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrConflict)
}

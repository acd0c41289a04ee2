package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"

	// serializationFailureCode aborts a transaction that lost a serialization race
	serializationFailureCode = "40001"

	// deadlockDetectedCode aborts one transaction of a lock cycle
	deadlockDetectedCode = "40P01"

	// tooManyConnectionsCode is raised when the server refuses new sessions
	tooManyConnectionsCode = "53300"

	// adminShutdownCode is raised when the server terminates the session
	adminShutdownCode = "57P01"

	// queryCanceledCode is raised when statement_timeout or a cancel request fires
	queryCanceledCode = "57014"

	// connectionExceptionClass prefixes every connection exception code (08xxx)
	connectionExceptionClass = "08"
)

// Constraint names from the migrations that map to specific store errors.
const (
	accountsEmailKey   = "accounts_email_lower_key"
	accountsSubjectKey = "accounts_provider_subject_key"
	clubsPkey          = "clubs_pkey"
	clubsNameKey       = "clubs_name_lower_key"
	followsAccountFkey = "account_follows_account_id_fkey"
	followsClubFkey    = "account_follows_club_id_fkey"
)

// storeSentinels are the errors MapError leaves untouched because they are
// already mapped.
var storeSentinels = []error{
	store.ErrNotFound,
	store.ErrDuplicate,
	store.ErrInvalidEntity,
	store.ErrStoreUnavailable,
	store.ErrConflict,
}

// MapError maps a database error to an appropriate store error.
// It wraps the original error to preserve context and provide better debugging information.
// This function should be used in all database operations to ensure consistent error handling.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range storeSentinels {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	// Handle common SQL errors
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	if IsUnavailable(err) {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case IsUniqueViolation(err):
		return mapUniqueConstraint(pgErr.ConstraintName, err)
	case IsForeignKeyViolation(err):
		return mapForeignKeyConstraint(pgErr.ConstraintName, err)
	case IsCheckConstraintViolation(err):
		return fmt.Errorf(
			"%w: check constraint violation (%s): %v",
			store.ErrInvalidEntity,
			pgErr.ConstraintName,
			err,
		)
	case IsNotNullViolation(err):
		return fmt.Errorf(
			"%w: not null violation (%s): %v",
			store.ErrInvalidEntity,
			pgErr.ColumnName,
			err,
		)
	case IsConflict(err):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}

	// Return the original error for errors that don't have specific mappings
	return err
}

func mapUniqueConstraint(constraint string, err error) error {
	switch constraint {
	case accountsEmailKey:
		return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
	case accountsSubjectKey:
		return fmt.Errorf("%w: %v", store.ErrSubjectExists, err)
	case clubsPkey, clubsNameKey:
		return fmt.Errorf("%w: %v", store.ErrClubExists, err)
	default:
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
}

func mapForeignKeyConstraint(constraint string, err error) error {
	switch constraint {
	case followsAccountFkey:
		return fmt.Errorf("%w: %v", store.ErrAccountNotFound, err)
	case followsClubFkey:
		return fmt.Errorf("%w: %v", store.ErrClubNotFound, err)
	default:
		return fmt.Errorf(
			"%w: foreign key violation (%s): %v",
			store.ErrInvalidEntity,
			constraint,
			err,
		)
	}
}

// IsUnavailable reports whether err means the database could not answer:
// an expired or canceled context, a broken connection, or a server that
// refuses or terminates sessions.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case tooManyConnectionsCode, adminShutdownCode, queryCanceledCode:
			return true
		}
		return strings.HasPrefix(pgErr.Code, connectionExceptionClass)
	}

	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key constraint violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// IsCheckConstraintViolation checks if the given error is a PostgreSQL check constraint violation.
func IsCheckConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == checkViolationCode
}

// IsNotNullViolation checks if the given error is a PostgreSQL not null constraint violation.
func IsNotNullViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == notNullViolationCode
}

// IsConflict checks if the given error aborted its transaction because of a
// serialization failure or a deadlock.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		(pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode)
}

// CheckRowsAffected examines the number of rows affected by a database operation.
// If no rows were affected, it returns notFound, or store.ErrNotFound when notFound is nil.
func CheckRowsAffected(result sql.Result, notFound error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if notFound == nil {
			return store.ErrNotFound
		}
		return notFound
	}

	return nil
}

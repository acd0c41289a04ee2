package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/service"
	"github.com/phrazzld/pulseboard-api/internal/service/auth"
	"github.com/phrazzld/pulseboard-api/internal/service/identity"
	"github.com/phrazzld/pulseboard-api/internal/service/membership"
	"github.com/phrazzld/pulseboard-api/internal/store"
)

// Machine-readable error kinds carried in every error response.
const (
	KindValidation         = "ValidationError"
	KindDuplicateIdentity  = "DuplicateIdentity"
	KindIdentityCollision  = "IdentityCollision"
	KindInvalidCredentials = "InvalidCredentials"
	KindWrongAuthMethod    = "WrongAuthMethod"
	KindUnauthorized       = "Unauthorized"
	KindNotFound           = "NotFound"
	KindExternalAuth       = "ExternalAuthError"
	KindStoreUnavailable   = "StoreUnavailable"
	KindDuplicateClub      = "DuplicateClub"
	KindRateLimited        = "RateLimited"
	KindInternal           = "InternalError"
)

// RetryAfterSeconds is advertised on 503 responses.
const RetryAfterSeconds = 2

// ErrorKind classifies err into one of the response kinds.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return KindInternal

	case errors.Is(err, domain.ErrValidation):
		return KindValidation

	case errors.Is(err, identity.ErrDuplicateIdentity),
		errors.Is(err, store.ErrEmailExists):
		return KindDuplicateIdentity
	case errors.Is(err, identity.ErrIdentityCollision):
		return KindIdentityCollision
	case errors.Is(err, identity.ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, identity.ErrWrongAuthMethod):
		return KindWrongAuthMethod
	case errors.Is(err, identity.ErrExternalAuth):
		return KindExternalAuth

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, membership.ErrUnauthorized),
		errors.Is(err, service.ErrAccountNotFound):
		return KindUnauthorized

	case errors.Is(err, membership.ErrClubNotFound),
		errors.Is(err, service.ErrClubNotFound),
		store.IsNotFoundError(err):
		return KindNotFound

	case errors.Is(err, service.ErrDuplicateClub),
		errors.Is(err, store.ErrClubExists):
		return KindDuplicateClub
	case store.IsDuplicateError(err):
		return KindDuplicateIdentity

	case store.IsRetryable(err):
		return KindStoreUnavailable

	default:
		return KindInternal
	}
}

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch ErrorKind(err) {
	case KindValidation, KindInvalidCredentials, KindWrongAuthMethod:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateIdentity, KindIdentityCollision, KindDuplicateClub:
		return http.StatusConflict
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err that never
// includes internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return fmt.Sprintf("Invalid %s: %s", verr.Field, verr.Message)
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.Is(err, identity.ErrDuplicateIdentity), errors.Is(err, store.ErrEmailExists):
		return "An account with this email already exists"
	case errors.Is(err, store.ErrSubjectExists):
		return "This identity is already linked to an account"
	case errors.Is(err, identity.ErrIdentityCollision):
		return "This email is registered with another sign-in method"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, identity.ErrWrongAuthMethod):
		return "This account signs in with Google"
	case errors.Is(err, identity.ErrExternalAuth):
		return "Sign-in with the identity provider failed"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"
	case ErrorKind(err) == KindUnauthorized:
		return "Invalid token"
	case ErrorKind(err) == KindNotFound:
		return "Club not found"
	case ErrorKind(err) == KindDuplicateClub:
		return "A club with this id or name already exists"
	case ErrorKind(err) == KindStoreUnavailable:
		return "Service temporarily unavailable, please retry"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a request-struct validation failure into a
// message naming the first offending field.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", lowerFirst(fe.Field()), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "gt":
		return "must be positive"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// HandleAPIError writes the error response for err: status, kind and safe
// message are derived from the error, and 503 responses carry Retry-After.
// A non-empty message overrides the derived one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := MapErrorToStatusCode(err)
	kind := ErrorKind(err)
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	var opts []shared.ResponseOption
	if kind == KindInvalidCredentials {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, kind, message, err, opts...)
}

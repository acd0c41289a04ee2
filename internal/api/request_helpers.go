package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/platform/logger"
	"github.com/phrazzld/pulseboard-api/internal/service/auth"
)

// getAccountIDFromContext extracts the authenticated account's ID placed in
// the context by the authentication middleware.
func getAccountIDFromContext(r *http.Request) (uuid.UUID, bool) {
	return shared.AccountIDFromContext(r.Context())
}

// getPathClubID parses a positive club id from the URL path.
func getPathClubID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, domain.NewValidationError(paramName, "is required", domain.ErrInvalidClubID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(paramName, "must be a positive integer", domain.ErrInvalidClubID)
	}
	return id, nil
}

// requireAccountID writes a 401 and reports false when the request carries
// no authenticated account.
func requireAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := getAccountIDFromContext(r)
	if !ok {
		logger.FromContext(r.Context()).Warn("account ID not found in request context")
		HandleAPIError(w, r, auth.ErrMissingToken, "")
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the JSON body into req and validates it,
// writing a 400 on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := shared.DecodeJSON(w, r, req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, KindValidation, "Invalid request format", err)
		return false
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, KindValidation, SanitizeValidationError(err), err)
		return false
	}
	return true
}

package api

import (
	"context"
	"net/http"

	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/service/identity"
)

// IdentityService is the subset of the identity service used by AuthHandler.
type IdentityService interface {
	Register(ctx context.Context, displayName, email, password string) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*identity.Session, error)
	FederatedLogin(ctx context.Context, code string) (*identity.Session, error)
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	identity IdentityService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(svc IdentityService) *AuthHandler {
	return &AuthHandler{identity: svc}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.identity.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, RegisterResponse{
		Message: "Account created",
		Account: accountToResponse(account),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		Token:   session.Token,
		Account: accountToResponse(session.Account),
		Message: "Login successful",
	})
}

// GoogleCallback handles POST /auth/google/callback. The client forwards the
// authorization code it received from Google.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	var req FederatedCallbackRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.identity.FederatedLogin(r.Context(), req.Code)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		Token:   session.Token,
		Account: accountToResponse(session.Account),
	})
}

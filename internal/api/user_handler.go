package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"github.com/phrazzld/pulseboard-api/internal/service"
)

// FollowingReader reads an account's following set.
type FollowingReader interface {
	GetFollowing(ctx context.Context, accountID uuid.UUID) ([]int64, error)
}

// UserHandler serves the authenticated account's own profile.
type UserHandler struct {
	accounts service.AccountService
	follows  FollowingReader
}

// NewUserHandler creates a new UserHandler with the given dependencies.
func NewUserHandler(accounts service.AccountService, follows FollowingReader) *UserHandler {
	return &UserHandler{accounts: accounts, follows: follows}
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetProfile(r.Context(), accountID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	following, err := h.follows.GetFollowing(r.Context(), accountID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	account.Following = following
	shared.RespondWithJSON(w, r, http.StatusOK, accountToResponse(account))
}

// SavePushToken handles POST /users/save-push-token.
func (h *UserHandler) SavePushToken(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	var req PushTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.accounts.SavePushToken(r.Context(), accountID, req.Token); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, shared.MessageResponse{Message: "Push token saved"})
}

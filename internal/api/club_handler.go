package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"github.com/phrazzld/pulseboard-api/internal/domain"
	"github.com/phrazzld/pulseboard-api/internal/service"
	"github.com/phrazzld/pulseboard-api/internal/service/membership"
)

// MembershipService is the subset of the membership service used by ClubHandler.
type MembershipService interface {
	ToggleFollow(ctx context.Context, accountID uuid.UUID, clubID int64) (*membership.ToggleResult, error)
}

// ClubHandler handles the club catalog and follow toggling.
type ClubHandler struct {
	clubs      service.ClubService
	membership MembershipService
}

// NewClubHandler creates a new ClubHandler with the given dependencies.
func NewClubHandler(clubs service.ClubService, follows MembershipService) *ClubHandler {
	return &ClubHandler{clubs: clubs, membership: follows}
}

// ListClubs handles GET /clubs.
func (h *ClubHandler) ListClubs(w http.ResponseWriter, r *http.Request) {
	clubs, err := h.clubs.ListClubs(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := make([]ClubResponse, 0, len(clubs))
	for _, c := range clubs {
		resp = append(resp, clubToResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetClub handles GET /clubs/{clubId}.
func (h *ClubHandler) GetClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := getPathClubID(r, "clubId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	club, err := h.clubs.GetClub(r.Context(), clubID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, clubToResponse(club))
}

// CreateClub handles POST /clubs.
func (h *ClubHandler) CreateClub(w http.ResponseWriter, r *http.Request) {
	var req CreateClubRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	club, err := h.clubs.CreateClub(r.Context(), req.ClubID, req.Name, req.Description, domain.Category(req.Category))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreateClubResponse{
		Message: "Club created",
		Club:    clubToResponse(club),
	})
}

// ToggleFollow handles POST /clubs/follow/{clubId}.
func (h *ClubHandler) ToggleFollow(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	clubID, err := getPathClubID(r, "clubId")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.membership.ToggleFollow(r.Context(), accountID, clubID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	following := result.Following
	if following == nil {
		following = []int64{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, FollowResponse{
		Following:     following,
		Followed:      result.Followed,
		FollowerCount: result.FollowerCount,
	})
}

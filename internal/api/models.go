package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pulseboard-api/internal/domain"
)

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// FederatedCallbackRequest carries the authorization code returned by the
// identity provider to the client.
type FederatedCallbackRequest struct {
	Code string `json:"code" validate:"required"`
}

// PushTokenRequest defines the payload for saving a device push token.
type PushTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// CreateClubRequest defines the payload for creating a club.
type CreateClubRequest struct {
	ClubID      int64  `json:"clubId"      validate:"gt=0"`
	Name        string `json:"name"        validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category"    validate:"required,oneof=Technical Cultural Sports Literary Other"`
}

// AccountResponse is the public view of an account. Credentials never appear.
type AccountResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	AuthMethod string    `json:"authMethod"`
	Following  []int64   `json:"following"`
	HasPush    bool      `json:"hasPushToken"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuthResponse defines the successful response for login endpoints.
type AuthResponse struct {
	Token   string          `json:"token"`
	Account AccountResponse `json:"account"`
	Message string          `json:"message,omitempty"`
}

// RegisterResponse defines the successful response for registration.
type RegisterResponse struct {
	Message string          `json:"message"`
	Account AccountResponse `json:"account"`
}

// FollowResponse is returned by the follow toggle.
type FollowResponse struct {
	Following     []int64 `json:"following"`
	Followed      bool    `json:"followed"`
	FollowerCount int     `json:"followerCount"`
}

// ClubResponse is the public view of a club.
type ClubResponse struct {
	ClubID        int64  `json:"clubId"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	FollowerCount int    `json:"followerCount"`
}

// CreateClubResponse defines the successful response for club creation.
type CreateClubResponse struct {
	Message string       `json:"message"`
	Club    ClubResponse `json:"club"`
}

func accountToResponse(a *domain.Account) AccountResponse {
	following := a.Following
	if following == nil {
		following = []int64{}
	}
	var method string
	if a.Auth != nil {
		method = string(a.Auth.Kind())
	}
	return AccountResponse{
		ID:         a.ID,
		Name:       a.DisplayName,
		Email:      a.Email,
		AuthMethod: method,
		Following:  following,
		HasPush:    a.PushToken != "",
		CreatedAt:  a.CreatedAt,
	}
}

func clubToResponse(c *domain.Club) ClubResponse {
	return ClubResponse{
		ClubID:        c.ClubID,
		Name:          c.Name,
		Description:   c.Description,
		Category:      string(c.Category),
		FollowerCount: c.FollowerCount,
	}
}

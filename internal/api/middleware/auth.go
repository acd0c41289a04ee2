package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/phrazzld/pulseboard-api/internal/api"
	"github.com/phrazzld/pulseboard-api/internal/api/shared"
	"github.com/phrazzld/pulseboard-api/internal/platform/logger"
	"github.com/phrazzld/pulseboard-api/internal/service/auth"
)

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates the bearer token in the Authorization header and
// adds the account ID to the request context. Validation never touches the store.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			api.HandleAPIError(w, r, auth.ErrMissingToken, "Authorization header required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			api.HandleAPIError(w, r, auth.ErrInvalidToken, "Invalid authorization format")
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if isTokenError(err) {
				api.HandleAPIError(w, r, err, "")
				return
			}
			api.HandleAPIError(w, r, err, "Authentication error")
			return
		}

		ctx := shared.WithAccountID(r.Context(), claims.AccountID)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("account_id", claims.AccountID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isTokenError(err error) bool {
	return errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrExpiredToken) ||
		errors.Is(err, auth.ErrTokenNotYetValid) ||
		errors.Is(err, auth.ErrMissingToken) ||
		errors.Is(err, auth.ErrWrongTokenType)
}

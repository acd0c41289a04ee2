package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/pulseboard-api/internal/api"
	apiMiddleware "github.com/phrazzld/pulseboard-api/internal/api/middleware"
	"github.com/phrazzld/pulseboard-api/internal/metrics"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(app.config.Server.RequestTimeoutSeconds) * time.Second))
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.Metrics(app.metrics))

	authHandler := api.NewAuthHandler(app.identityService)
	clubHandler := api.NewClubHandler(app.clubService, app.membershipService)
	userHandler := api.NewUserHandler(app.accountService, app.membershipService)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(app.authLimiter.Limit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			if app.identityService.FederatedEnabled() {
				r.Post("/google/callback", authHandler.GoogleCallback)
			}
		})

		r.Get("/clubs", clubHandler.ListClubs)
		r.Get("/clubs/{clubId}", clubHandler.GetClub)
		r.Post("/clubs", clubHandler.CreateClub)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Post("/clubs/follow/{clubId}", clubHandler.ToggleFollow)
			r.Get("/users/me", userHandler.Me)
			r.Post("/users/save-push-token", userHandler.SavePushToken)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", metrics.Handler(app.registry))

	return r
}

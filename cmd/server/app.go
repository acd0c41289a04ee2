package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pulseboard-api/internal/api/middleware"
	"github.com/phrazzld/pulseboard-api/internal/config"
	"github.com/phrazzld/pulseboard-api/internal/metrics"
	"github.com/phrazzld/pulseboard-api/internal/platform/google"
	"github.com/phrazzld/pulseboard-api/internal/platform/memory"
	"github.com/phrazzld/pulseboard-api/internal/platform/postgres"
	"github.com/phrazzld/pulseboard-api/internal/service"
	"github.com/phrazzld/pulseboard-api/internal/service/auth"
	"github.com/phrazzld/pulseboard-api/internal/service/identity"
	"github.com/phrazzld/pulseboard-api/internal/service/membership"
	"github.com/phrazzld/pulseboard-api/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// txRetryBackoff is the base delay between re-runs of a conflicting transaction.
const txRetryBackoff = 20 * time.Millisecond

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	tx       store.Transactor
	accounts store.AccountStore
	clubs    store.ClubStore

	jwtService        auth.JWTService
	identityService   *identity.Service
	membershipService *membership.Service
	clubService       service.ClubService
	accountService    service.AccountService

	registry    *prometheus.Registry
	metrics     *metrics.Collector
	authLimiter *middleware.RateLimiter
}

// newApplication creates a new application instance with all dependencies initialized.
// db is nil when the memory store driver is configured.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := app.setupStores(); err != nil {
		return nil, err
	}

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewCollector(app.registry)

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	hasher := auth.NewBcrypt(cfg.Auth.BcryptCost)
	opTimeout := time.Duration(cfg.Store.OperationTimeoutMillis) * time.Millisecond

	deps := identity.Deps{
		Accounts:         app.accounts,
		Hasher:           hasher,
		Verifier:         hasher,
		Tokens:           app.jwtService,
		ProviderName:     google.ProviderName,
		OperationTimeout: opTimeout,
		Metrics:          app.metrics,
		Logger:           logger,
	}
	if cfg.Google.Enabled() {
		provider, err := google.NewProvider(ctx, cfg.Google, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google provider: %w", err)
		}
		deps.Provider = provider
		logger.Info("Google federated login enabled", "issuer", cfg.Google.IssuerURL)
	}
	app.identityService, err = identity.NewService(deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity service: %w", err)
	}

	app.membershipService, err = membership.NewService(app.tx, app.accounts, opTimeout, app.metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership service: %w", err)
	}

	app.clubService = service.NewClubService(app.clubs, logger)
	app.accountService = service.NewAccountService(app.accounts, logger)

	app.authLimiter = middleware.NewRateLimiter(
		cfg.Limits.AuthRequestsPerMinute,
		cfg.Limits.AuthBurst,
		10*time.Minute,
	)

	logger.Info("application initialized successfully")
	return app, nil
}

func (app *application) setupStores() error {
	switch app.config.Database.Driver {
	case storeDriverMemory:
		db := memory.New()
		app.tx, app.accounts, app.clubs = db, db.Accounts(), db.Clubs()
	case storeDriverPostgres:
		if app.db == nil {
			return fmt.Errorf("postgres store driver requires a database connection")
		}
		t := postgres.NewTransactor(app.db, store.RetryPolicy{
			MaxRetries: app.config.Store.MaxTxRetries,
			Backoff:    txRetryBackoff,
		}, app.logger)
		app.tx, app.accounts, app.clubs = t, t.Accounts(), t.Clubs()
	default:
		return fmt.Errorf("unknown store driver %q", app.config.Database.Driver)
	}
	return nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// reconcile runs one follower-count reconciliation pass and logs each drift.
// The pass is bounded by store.reconcile_timeout_millis.
func (app *application) reconcile(ctx context.Context) error {
	timeout := time.Duration(app.config.Store.ReconcileTimeoutMillis) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	drifts, err := app.membershipService.ReconcileFollowerCounts(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	for _, d := range drifts {
		app.logger.Warn("follower count corrected",
			"club_id", d.ClubID,
			"recorded", d.Recorded,
			"actual", d.Actual)
	}
	app.logger.Info("reconciliation completed", "drifted_clubs", len(drifts))
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.authLimiter != nil {
		app.authLimiter.Stop()
	}
	closeDatabase(app.db, app.logger)
	app.logger.Info("application shutdown completed")
}

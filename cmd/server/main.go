// Package main implements the entry point for the Pulseboard API server,
// which serves account sign-in, the club catalog and club follows.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/pulseboard-api/internal/config"
	"github.com/phrazzld/pulseboard-api/internal/platform/logger"
	"github.com/phrazzld/pulseboard-api/internal/platform/postgres"
)

// options are the command-line modes of the server binary.
type options struct {
	migrate   string
	reconcile bool
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.migrate, "migrate", "",
		"run a database migration command (up, down, reset, status, version) and exit")
	fs.BoolVar(&opts.reconcile, "reconcile", false,
		"recompute every club's follower count, report drift and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.migrate != "" && opts.reconcile {
		return options{}, fmt.Errorf("-migrate and -reconcile cannot be combined")
	}
	return opts, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// run loads configuration, sets up logging and the database, then either
// runs a one-shot command or serves HTTP until interrupted.
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Database.Driver,
		"google_login", cfg.Google.Enabled())

	db, err := setupAppDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}

	if opts.migrate != "" {
		if db == nil {
			return fmt.Errorf("migrations require the postgres store driver")
		}
		defer closeDatabase(db, log)
		return postgres.Migrate(ctx, db, opts.migrate, log)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		closeDatabase(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if opts.reconcile {
		defer app.cleanup()
		return app.reconcile(ctx)
	}
	return app.Run(ctx)
}

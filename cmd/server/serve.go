package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/phrazzld/scry-uams/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the study scheduling HTTP API.

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, flags, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, migrateFirst bool) error {
	cfg, err := loadAppConfig(flags)
	if err != nil {
		return err
	}
	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	if migrateFirst {
		if err := postgres.Migrate(ctx, db, postgres.MigrateUp, logger); err != nil {
			_ = db.Close()
			return err
		}
	}

	app := newApplication(cfg, logger, db)
	defer app.cleanup()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.Server.Port, err)
	}
	return app.serveHTTP(ctx, ln, app.handler())
}

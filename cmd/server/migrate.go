package main

import (
	"fmt"

	"github.com/phrazzld/scry-uams/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|status|version]",
		Short: "Manage the database schema",
		Long: `Run goose migrations embedded in the binary against the configured database.

  up      - apply all pending migrations
  down    - roll back the most recent migration
  status  - list applied and pending migrations
  version - print the current schema version`,
		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{
			postgres.MigrateUp,
			postgres.MigrateDown,
			postgres.MigrateStatus,
			postgres.MigrateVersion,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig(flags)
			if err != nil {
				return err
			}
			logger, err := setupAppLogger(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := postgres.Migrate(ctx, db, args[0], logger); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			return nil
		},
	}
}

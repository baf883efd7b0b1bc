package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-uams/internal/config"
	"github.com/phrazzld/scry-uams/internal/platform/logger"
)

// loadAppConfig loads configuration and applies command-line overrides.
func loadAppConfig(flags *rootFlags) (*config.Config, error) {
	cfg, err := config.LoadFrom(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if flags.logLevel != "" {
		if _, ok := logger.ParseLevel(flags.logLevel); !ok {
			return nil, fmt.Errorf("invalid --log-level %q", flags.logLevel)
		}
		cfg.Server.LogLevel = flags.logLevel
	}
	return cfg, nil
}

// setupAppLogger configures the process-wide structured logger.
func setupAppLogger(cfg *config.Config) (*slog.Logger, error) {
	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("algorithm_version", cfg.Scheduler.AlgorithmVersion),
		slog.Bool("metrics_enabled", cfg.Metrics.Enabled))
	return l, nil
}

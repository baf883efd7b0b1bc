package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over
// values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom works like Load but reads the given config file instead of
// searching the working directory. An empty path searches.
func LoadFrom(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about; bind the ones
	// without defaults explicitly.
	for key, env := range map[string]string{
		"database.url": "SCRY_DATABASE_URL",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 15)

	v.SetDefault("database.max_conns", 10)

	v.SetDefault("scheduler.algorithm_version", "uams-1.0")
	v.SetDefault("scheduler.target_retention", 0.9)
	v.SetDefault("scheduler.review_queue_size", 15)
	v.SetDefault("scheduler.lookahead_size", 10)
	v.SetDefault("scheduler.emergency_size", 5)
	v.SetDefault("scheduler.challenge_size", 5)
	v.SetDefault("scheduler.history_window", 10)
	v.SetDefault("scheduler.performance_window", 5)
	v.SetDefault("scheduler.front_of_line_window", 5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL      string `mapstructure:"url" validate:"required,url"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=0"`
}

// SchedulerConfig tunes the study scheduler. The core algorithms keep their
// own constants; these settings size the session buffers and history
// windows around them.
type SchedulerConfig struct {
	AlgorithmVersion  string  `mapstructure:"algorithm_version" validate:"required"`
	TargetRetention   float64 `mapstructure:"target_retention" validate:"gt=0,lt=1"`
	ReviewQueueSize   int     `mapstructure:"review_queue_size" validate:"gt=0"`
	LookaheadSize     int     `mapstructure:"lookahead_size" validate:"gte=0"`
	EmergencySize     int     `mapstructure:"emergency_size" validate:"gte=0"`
	ChallengeSize     int     `mapstructure:"challenge_size" validate:"gte=0"`
	HistoryWindow     int     `mapstructure:"history_window" validate:"gte=3"`
	PerformanceWindow int     `mapstructure:"performance_window" validate:"gt=0"`
	FrontOfLineWindow int     `mapstructure:"front_of_line_window" validate:"gt=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

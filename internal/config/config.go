package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Script   ScriptConfig   `mapstructure:"script" validate:"required"`
	Runner   RunnerConfig   `mapstructure:"runner" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// ScriptConfig controls how user-supplied execution and check scripts run.
type ScriptConfig struct {
	// Interpreter is the executable used to run script content.
	Interpreter string `mapstructure:"interpreter" validate:"required"`

	// TimeoutSeconds bounds a single script run. A timed-out script is a
	// failed execution, never retried automatically.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// RunnerConfig controls the background job runner that executes scripts off
// the request path.
type RunnerConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`

	// StuckJobMinutes defines how long a job can sit in the running state
	// before the runner resets it.
	StuckJobMinutes int `mapstructure:"stuck_job_minutes" validate:"required,gt=0"`
}

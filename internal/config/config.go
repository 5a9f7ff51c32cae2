package config

import "time"

// Config is the root configuration for the plan mode engine.
type Config struct {
	Core     CoreConfig     `mapstructure:"core" yaml:"core"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// CoreConfig holds engine-wide settings.
type CoreConfig struct {
	// HomeDir is the directory holding the engine's data files.
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir" validate:"required"`

	// Debug enables debug-level logging regardless of logging.level.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// DatabaseConfig holds SQLite settings for plan state persistence.
type DatabaseConfig struct {
	Path           string        `mapstructure:"path" yaml:"path" validate:"required"`
	MaxConnections int           `mapstructure:"max_connections" yaml:"max_connections" validate:"min=1,max=100"`
	BusyTimeout    time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" validate:"min=0"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	// BufferSize is the per-subscriber channel capacity. Events beyond
	// it are dropped for that subscriber.
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size" validate:"min=1,max=10000"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TracingConfig holds trace instrumentation settings. Exporter wiring
// belongs to the host process; the engine only needs to know whether to
// ask the global provider for a tracer.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

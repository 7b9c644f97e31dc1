package config

import (
	"fmt"
	"strings"
	"time"
)

// Listener defaults.
const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8081
	DefaultMetricsPort = 9090
)

// Config represents the complete application configuration, assembled from
// defaults, an optional YAML file, the environment and runtime overrides.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Garmin   GarminConfig   `mapstructure:"garmin"`
	Session  SessionConfig  `mapstructure:"session"`
	Download DownloadConfig `mapstructure:"download"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GarminConfig contains upstream account and endpoint settings.
type GarminConfig struct {
	Email     string        `mapstructure:"email"`
	Password  string        `mapstructure:"password"`
	BaseURL   string        `mapstructure:"base_url"`
	SSOURL    string        `mapstructure:"sso_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// RequireCredentials turns missing credentials into a startup failure
	// instead of an error on the first upstream call.
	RequireCredentials bool `mapstructure:"require_credentials"`
}

// HasCredentials reports whether both email and password are set.
func (g GarminConfig) HasCredentials() bool {
	return strings.TrimSpace(g.Email) != "" && g.Password != ""
}

// SessionConfig controls how long an authenticated session is reused.
type SessionConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// DownloadConfig controls activity download retries.
type DownloadConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Factor      float64       `mapstructure:"factor"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether the Prometheus exporter is started
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated exporter port; /metrics on the main port proxies it
	Port int `mapstructure:"port"`
}

// Validate checks value ranges and, when required, credential presence.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Session.Interval <= 0 {
		problems = append(problems, "session.interval must be positive")
	}
	if c.Download.MaxAttempts < 1 {
		problems = append(problems, "download.max_attempts must be at least 1")
	}
	if c.Download.BaseDelay < 0 {
		problems = append(problems, "download.base_delay must not be negative")
	}
	if c.Download.Factor < 1 {
		problems = append(problems, "download.factor must be at least 1")
	}
	if c.Metrics.Enabled && (c.Metrics.Port < 0 || c.Metrics.Port > 65535) {
		problems = append(problems, fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}
	if c.Garmin.RequireCredentials && !c.Garmin.HasCredentials() {
		problems = append(problems, "GARMIN_EMAIL and GARMIN_PASSWORD must be set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Package config provides centralized configuration management. Values are
// layered in this order, later layers winning:
// Layer 1: compiled defaults
// Layer 2: user config file (explicit path or XDG discovery)
// Layer 3: environment variables (including a .env file) and runtime overrides
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/garminwrap/garminwrap/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Options tune a single Load call.
type Options struct {
	// ConfigFile is an explicit YAML file; empty means XDG discovery.
	ConfigFile string

	// DotEnv lists .env files to load before reading the environment. Missing
	// files are ignored. Nil means ".env" in the working directory.
	DotEnv []string
}

// Load loads configuration with XDG config discovery.
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	return LoadWithOptions(ctx, Options{}, runtimeOverrides...)
}

// LoadWithOptions loads configuration honouring opts.
func LoadWithOptions(ctx context.Context, opts Options, runtimeOverrides ...map[string]any) (*Config, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}

	if err := loadDotEnv(opts.DotEnv); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = discoverConfigFile(identity)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	// Bare GARMIN_* variables are applied first so prefixed ones win.
	for _, specs := range [][]EnvVarSpec{credentialEnvSpecs(), getEnvSpecs(identity)} {
		envOverrides, err := gfconfig.LoadEnvOverrides(specs)
		if err != nil {
			return nil, fmt.Errorf("failed to load environment overrides: %w", err)
		}
		if err := v.MergeConfigMap(envOverrides); err != nil {
			return nil, fmt.Errorf("failed to merge environment overrides: %w", err)
		}
	}

	for _, overrides := range runtimeOverrides {
		if len(overrides) == 0 {
			continue
		}
		if err := v.MergeConfigMap(overrides); err != nil {
			return nil, fmt.Errorf("failed to merge runtime overrides: %w", err)
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Upstream defaults
	v.SetDefault("garmin.email", "")
	v.SetDefault("garmin.password", "")
	v.SetDefault("garmin.base_url", "https://connect.garmin.com")
	v.SetDefault("garmin.sso_url", "https://sso.garmin.com/sso/signin")
	v.SetDefault("garmin.user_agent", "")
	v.SetDefault("garmin.timeout", "30s")
	v.SetDefault("garmin.require_credentials", false)

	// Session and retry defaults
	v.SetDefault("session.interval", "60s")
	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.base_delay", "1s")
	v.SetDefault("download.factor", 2.0)

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", DefaultMetricsPort)
}

func decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func loadDotEnv(files []string) error {
	if files == nil {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to stat %s: %w", file, err)
		}
		// godotenv.Load never overrides variables already in the environment.
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// discoverConfigFile returns the first existing user config file.
func discoverConfigFile(identity *appidentity.Identity) string {
	for _, path := range getUserConfigPaths(identity) {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path
		}
	}
	return ""
}

// getUserConfigPaths returns the list of user config file paths to check
func getUserConfigPaths(identity *appidentity.Identity) []string {
	if identity == nil {
		return []string{}
	}

	appName := identity.ConfigName
	if strings.TrimSpace(appName) == "" {
		appName = identity.BinaryName
	}

	legacyNames := []string{}
	if identity.BinaryName != "" && identity.BinaryName != appName {
		legacyNames = append(legacyNames, identity.BinaryName)
	}

	return gfconfig.GetAppConfigPaths(appName, legacyNames...)
}

// credentialEnvSpecs maps the unprefixed credential variables.
func credentialEnvSpecs() []EnvVarSpec {
	return []EnvVarSpec{
		{Name: "GARMIN_EMAIL", Path: []string{"garmin", "email"}, Type: EnvString},
		{Name: "GARMIN_PASSWORD", Path: []string{"garmin", "password"}, Type: EnvString},
	}
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs(identity *appidentity.Identity) []EnvVarSpec {
	prefix := appid.EnvPrefix
	if identity != nil && identity.EnvPrefix != "" {
		prefix = identity.EnvPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		// Upstream config
		{Name: prefix + "GARMIN_EMAIL", Path: []string{"garmin", "email"}, Type: EnvString},
		{Name: prefix + "GARMIN_PASSWORD", Path: []string{"garmin", "password"}, Type: EnvString},
		{Name: prefix + "GARMIN_BASE_URL", Path: []string{"garmin", "base_url"}, Type: EnvString},
		{Name: prefix + "GARMIN_SSO_URL", Path: []string{"garmin", "sso_url"}, Type: EnvString},
		{Name: prefix + "GARMIN_USER_AGENT", Path: []string{"garmin", "user_agent"}, Type: EnvString},
		{Name: prefix + "GARMIN_TIMEOUT", Path: []string{"garmin", "timeout"}, Type: EnvString},
		{Name: prefix + "REQUIRE_CREDENTIALS", Path: []string{"garmin", "require_credentials"}, Type: EnvBool},

		// Session and retry config
		{Name: prefix + "SESSION_INTERVAL", Path: []string{"session", "interval"}, Type: EnvString},
		{Name: prefix + "DOWNLOAD_MAX_ATTEMPTS", Path: []string{"download", "max_attempts"}, Type: EnvInt},
		{Name: prefix + "DOWNLOAD_BASE_DELAY", Path: []string{"download", "base_delay"}, Type: EnvString},
		{Name: prefix + "DOWNLOAD_FACTOR", Path: []string{"download", "factor"}, Type: EnvString},

		// Logging config
		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.BinaryName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/appid"
	"github.com/garminwrap/garminwrap/internal/config"
	errwrap "github.com/garminwrap/garminwrap/internal/errors"
	"github.com/garminwrap/garminwrap/internal/observability"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string

	// App identity compiled into the binary
	appIdentity *appidentity.Identity

	// Configuration loaded before every command runs
	activeConfig *config.Config

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity (only valid after initConfig)
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appid.BinaryName,
	Short: "HTTP wrapper exposing Garmin Connect activity data",
	Long: `garminwrap signs in to Garmin Connect with one account and exposes daily
stats, activity lists, activity details and activity files over HTTP.

Credentials are read from GARMIN_EMAIL and GARMIN_PASSWORD (a .env file in the
working directory is honoured). Use the subcommands to serve the API or to run
the same operations once from the terminal.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Disable global telemetry early so CLI commands never emit metrics to
	// stdout. Server mode initializes the Prometheus exporter later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	if identity, err := appid.Get(context.Background()); err == nil {
		appIdentity = identity
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is %s)", config.DefaultConfigPath()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml, markdown")
	rootCmd.PersistentFlags().String("log-level", "", "log level override: trace, debug, info, warn, error")
}

// initConfig loads the app identity, the CLI logger and the layered
// configuration. Explicitly set flags are applied as runtime overrides.
func initConfig(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	identity, err := appid.Get(ctx)
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to load app identity")
	}
	appIdentity = identity

	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(identity.BinaryName, verbose)

	cfg, err := config.LoadWithOptions(ctx, config.Options{ConfigFile: cfgFile}, flagOverrides(cmd))
	if err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return errwrap.WrapConfigInvalid(ctx, err, "configuration is invalid")
	}
	activeConfig = cfg

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("config_file", cfgFile),
		zap.Bool("credentials_present", cfg.Garmin.HasCredentials()),
		zap.Duration("session_interval", cfg.Session.Interval))

	return nil
}

// flagOverrides converts explicitly set flags into a nested override map.
func flagOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		if value, err := flags.GetString("log-level"); err == nil {
			setOverride(overrides, value, "logging", "level")
		}
	}
	if flags.Lookup("host") != nil && flags.Changed("host") {
		if value, err := flags.GetString("host"); err == nil {
			setOverride(overrides, value, "server", "host")
		}
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		if value, err := flags.GetInt("port"); err == nil {
			setOverride(overrides, value, "server", "port")
		}
	}
	if flags.Lookup("require-credentials") != nil && flags.Changed("require-credentials") {
		if value, err := flags.GetBool("require-credentials"); err == nil {
			setOverride(overrides, value, "garmin", "require_credentials")
		}
	}
	if flags.Lookup("metrics-port") != nil && flags.Changed("metrics-port") {
		if value, err := flags.GetInt("metrics-port"); err == nil {
			setOverride(overrides, value, "metrics", "port")
		}
	}

	return overrides
}

func setOverride(root map[string]any, value any, path ...string) {
	node := root
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[key] = next
		}
		node = next
	}
	node[path[len(path)-1]] = value
}

// currentConfig returns the loaded configuration or an error when a command
// runs without the root pre-run (tests).
func currentConfig() (*config.Config, error) {
	if activeConfig == nil {
		return nil, errwrap.NewConfigInvalidError("configuration not loaded")
	}
	return activeConfig, nil
}

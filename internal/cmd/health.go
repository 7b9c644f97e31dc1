package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/config"
	errwrap "github.com/garminwrap/garminwrap/internal/errors"
	"github.com/garminwrap/garminwrap/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Verify the binary can start: version metadata, logger and configuration.
Credentials are only reported, never used; run "login" to check them upstream.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		return runHealth(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(w io.Writer, cfg *config.Config) error {
	if versionInfo.Version == "" {
		fmt.Fprintln(w, "FAIL  version information missing")
		return errwrap.NewConfigInvalidError("version information missing")
	}
	fmt.Fprintf(w, "ok    version %s\n", versionInfo.Version)

	if observability.CLILogger == nil {
		fmt.Fprintln(w, "FAIL  logger not initialized")
		return errwrap.NewConfigInvalidError("logger not initialized")
	}
	fmt.Fprintln(w, "ok    logger initialized")

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "FAIL  configuration: %v\n", err)
		return errwrap.NewConfigInvalidError(err.Error())
	}
	fmt.Fprintln(w, "ok    configuration valid")

	if cfg.Garmin.HasCredentials() {
		fmt.Fprintln(w, "ok    credentials present")
	} else {
		fmt.Fprintln(w, "warn  GARMIN_EMAIL or GARMIN_PASSWORD not set; upstream calls will fail")
	}

	observability.CLILogger.Debug("Health check complete",
		zap.String("version", versionInfo.Version),
		zap.Bool("credentials_present", cfg.Garmin.HasCredentials()))
	return nil
}

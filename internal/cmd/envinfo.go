package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/config"
	"github.com/garminwrap/garminwrap/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration and version information. Secrets are never printed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		logEnvInfo(cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}

func logEnvInfo(cfg *config.Config) {
	log := observability.CLILogger
	version := crucible.GetVersion()
	identity := GetAppIdentity()

	log.Info("=== garminwrap Environment Information ===")
	log.Info("")

	log.Info("Application:")
	log.Info("  Name:       " + identity.BinaryName)
	log.Info("  Version:    " + versionInfo.Version)
	log.Info("  Commit:     " + versionInfo.Commit)
	log.Info("  Built:      " + versionInfo.BuildDate)
	log.Info("")

	log.Info("SSOT:")
	log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
	log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
	log.Info("")

	log.Info("Runtime:")
	log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
	log.Info("  Platform:   "+runtime.GOOS+"/"+runtime.GOARCH, zap.String("goos", runtime.GOOS), zap.String("goarch", runtime.GOARCH))
	log.Info("")

	log.Info("Server:")
	log.Info(fmt.Sprintf("  Listen:           %s:%d", cfg.Server.Host, cfg.Server.Port))
	log.Info("  Write Timeout:    " + cfg.Server.WriteTimeout.String())
	log.Info("  Log Level:        "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
	log.Info(fmt.Sprintf("  Metrics:          %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
	log.Info("  Config File:      " + config.DefaultConfigPath())
	log.Info("")

	log.Info("Garmin Connect:")
	log.Info("  Account:          "+maskEmail(cfg.Garmin.Email), zap.Bool("credentials_present", cfg.Garmin.HasCredentials()))
	log.Info(fmt.Sprintf("  Password:         %s", presence(cfg.Garmin.Password != "")))
	log.Info("  API Base URL:     " + cfg.Garmin.BaseURL)
	log.Info("  SSO URL:          " + cfg.Garmin.SSOURL)
	log.Info("  Request Timeout:  " + cfg.Garmin.Timeout.String())
	log.Info("  Session Interval: " + cfg.Session.Interval.String())
	log.Info(fmt.Sprintf("  Download Retries: %d (base %s, factor %.1f)", cfg.Download.MaxAttempts, cfg.Download.BaseDelay, cfg.Download.Factor))
	log.Info("")

	log.Info("=== End Environment Information ===")
}

// maskEmail keeps the first character of the local part and the domain.
func maskEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "(not set)"
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

func presence(set bool) string {
	if set {
		return "(set)"
	}
	return "(not set)"
}

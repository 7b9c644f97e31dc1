package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/awnumar/memguard"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/config"
	errwrap "github.com/garminwrap/garminwrap/internal/errors"
	"github.com/garminwrap/garminwrap/internal/metrics"
	"github.com/garminwrap/garminwrap/internal/observability"
	"github.com/garminwrap/garminwrap/internal/server"
	"github.com/garminwrap/garminwrap/internal/server/handlers"
)

// metricsNamespace prefixes every exported Prometheus series.
const metricsNamespace = "garminwrap"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API with graceful shutdown support.

Endpoints:
  GET /stats?date=YYYY-MM-DD
  GET /activities?start=0&limit=10
  GET /activities/{id}
  GET /activities/{id}/download?format=fit
  GET /health

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload configuration (log level applies immediately)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		identity := GetAppIdentity()

		observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, metricsNamespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(metricsNamespace, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		if !cfg.Garmin.HasCredentials() {
			logger.Warn("GARMIN_EMAIL or GARMIN_PASSWORD not set; upstream calls will fail until configured")
		}

		svc, _ := buildService(cfg, logger)
		srv := server.New(cfg.Server.Host, cfg.Server.Port, svc)
		if cfg.Server.ReadTimeout > 0 {
			srv.ReadTimeout = cfg.Server.ReadTimeout
		}
		if cfg.Server.WriteTimeout > 0 {
			srv.WriteTimeout = cfg.Server.WriteTimeout
		}
		srv.Health().RegisterChecker("credentials", credentialsChecker(cfg))
		handlers.SetAppIdentity(identity)
		metrics.SetServerStartTime(time.Now().Unix())

		logger.Info("Initializing server",
			zap.String("service", svc.Name),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.Duration("session_interval", cfg.Session.Interval))

		registerSignalHandlers(srv, cfg)

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// registerSignalHandlers wires shutdown, reload and double-tap. Shutdown
// handlers run LIFO: the HTTP server stops first, then the exporter and the
// credential enclave, and the logger is flushed last.
func registerSignalHandlers(srv *server.Server, cfg *config.Config) {
	logger := observability.ServerLogger

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			// stdout/stderr may already be closed
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		if exporter := observability.PrometheusExporter; exporter != nil {
			if err := exporter.Stop(); err != nil {
				logger.Warn("Failed to stop metrics exporter", zap.Error(err))
			}
		}
		memguard.Purge()
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		timeout := cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading configuration")

		reloaded, err := config.LoadWithOptions(ctx, config.Options{ConfigFile: cfgFile})
		if err == nil {
			err = reloaded.Validate()
		}
		if err != nil {
			logger.Error("Config reload failed, keeping current configuration", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}

		observability.SetServerLogLevel(reloaded.Logging.Level)
		logger.Info("Configuration reloaded",
			zap.String("log_level", reloaded.Logging.Level),
			zap.Bool("credentials_present", reloaded.Garmin.HasCredentials()))
		if reloaded.Garmin.Email != cfg.Garmin.Email || reloaded.Session.Interval != cfg.Session.Interval {
			logger.Warn("Credential and session changes take effect after restart")
		}
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}
}

// credentialsChecker degrades readiness while no credentials are configured.
func credentialsChecker(cfg *config.Config) handlers.HealthChecker {
	return handlers.HealthCheckerFunc(func(ctx context.Context) error {
		if !cfg.Garmin.HasCredentials() {
			return handlers.ErrDegraded
		}
		return nil
	})
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", config.DefaultHost, "server host")
	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "server port")
	serveCmd.Flags().Bool("require-credentials", false, "fail at startup when GARMIN_EMAIL or GARMIN_PASSWORD is missing")
	serveCmd.Flags().Int("metrics-port", config.DefaultMetricsPort, "Prometheus exporter port")
}

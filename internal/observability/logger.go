package observability

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"

	"github.com/garminwrap/garminwrap/internal/appid"
)

var (
	// CLILogger serves one-shot commands (SIMPLE profile).
	CLILogger *logging.Logger

	// ServerLogger serves the HTTP API (STRUCTURED profile, JSON on stderr).
	ServerLogger *logging.Logger
)

// InitCLILogger creates the command logger; verbose enables DEBUG.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger creates the structured server logger. The optional
// namespace is stamped on every entry to match the metrics namespace.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	static := map[string]any{}
	if len(namespace) > 0 && namespace[0] != "" {
		static["namespace"] = namespace[0]
	}

	logger, err := logging.New(&logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(logLevel),
		Service:      serviceName,
		Environment:  environment(),
		StaticFields: static,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: map[string]any{}},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr"},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	})
	if err != nil {
		fatal(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// SetServerLogLevel applies a new level to the running server logger.
func SetServerLogLevel(levelStr string) {
	if ServerLogger == nil {
		return
	}
	switch parseLogLevel(levelStr) {
	case "TRACE":
		ServerLogger.SetLevel(logging.TRACE)
	case "DEBUG":
		ServerLogger.SetLevel(logging.DEBUG)
	case "WARN":
		ServerLogger.SetLevel(logging.WARN)
	case "ERROR":
		ServerLogger.SetLevel(logging.ERROR)
	default:
		ServerLogger.SetLevel(logging.INFO)
	}
}

// environment labels log entries; GARMINWRAP_ENV overrides the default.
func environment() string {
	if env := os.Getenv(appid.EnvPrefix + "ENV"); env != "" {
		return env
	}
	return "production"
}

func parseLogLevel(levelStr string) string {
	switch levelStr {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// fatal reports a logger bootstrap failure on stderr and exits; no logger
// exists yet to carry it.
func fatal(exitCode foundry.ExitCode, msg string, err error) {
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
		os.Exit(info.Code)
	}
	os.Exit(int(exitCode))
}

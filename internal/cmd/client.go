package cmd

import (
	"io"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/garminwrap/garminwrap/internal/config"
	"github.com/garminwrap/garminwrap/internal/core"
	"github.com/garminwrap/garminwrap/internal/garmin"
	"github.com/garminwrap/garminwrap/internal/output"
	"github.com/garminwrap/garminwrap/internal/retry"
	"github.com/garminwrap/garminwrap/internal/session"
)

// newClientFactory builds the upstream client factory; tests replace it.
var newClientFactory = func(cfg *config.Config) garmin.Factory {
	return garmin.NewFactory(garmin.Options{
		BaseURL:   cfg.Garmin.BaseURL,
		SSOURL:    cfg.Garmin.SSOURL,
		UserAgent: cfg.Garmin.UserAgent,
		Timeout:   cfg.Garmin.Timeout,
	})
}

// buildService wires the session manager and retry policy from cfg.
func buildService(cfg *config.Config, logger *logging.Logger) (*core.Service, *session.Manager) {
	creds := garmin.NewCredentials(cfg.Garmin.Email, cfg.Garmin.Password)

	manager := session.NewManager(newClientFactory(cfg), creds)
	if cfg.Session.Interval > 0 {
		manager.Interval = cfg.Session.Interval
	}
	manager.Logger = logger

	svc := core.NewService(manager)
	svc.Logger = logger
	if cfg.Download.MaxAttempts > 0 {
		svc.Download = retry.Policy{
			MaxAttempts: cfg.Download.MaxAttempts,
			Backoff:     retry.Exponential(cfg.Download.BaseDelay, cfg.Download.Factor),
		}
	}
	return svc, manager
}

// resolveFormatter parses the global --output flag.
func resolveFormatter() (output.Formatter, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format), nil
}

func writeRendered(w io.Writer, rendered string) error {
	if rendered == "" {
		return nil
	}
	_, err := io.WriteString(w, rendered+"\n")
	return err
}

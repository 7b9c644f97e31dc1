package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/garmin"
	"github.com/garminwrap/garminwrap/internal/metrics"
	"github.com/garminwrap/garminwrap/internal/retry"
	"github.com/garminwrap/garminwrap/internal/session"
)

// DefaultServiceName is reported by the health probe.
const DefaultServiceName = "garmin-api"

// DateLayout is the calendar date format accepted for daily stats.
const DateLayout = "2006-01-02"

// Default activity listing window.
const (
	DefaultStart = 0
	DefaultLimit = 10
)

// DefaultDownloadPolicy retries a download three times, waiting 1s then 2s.
func DefaultDownloadPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Exponential(time.Second, 2),
	}
}

// Service runs each read operation: acquire a session, make exactly one
// upstream call, return its payload untouched.
type Service struct {
	Sessions session.Acquirer
	Download retry.Policy
	Name     string
	Logger   *logging.Logger
}

// NewService returns a Service with the default download policy.
func NewService(sessions session.Acquirer) *Service {
	return &Service{
		Sessions: sessions,
		Download: DefaultDownloadPolicy(),
		Name:     DefaultServiceName,
	}
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if date == "" {
		return &garmin.ValidationError{Field: "date", Message: "A 'date' query parameter is required in YYYY-MM-DD format."}
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return &garmin.ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date)}
	}
	return nil
}

// Stats returns the daily stats object for date.
func (s *Service) Stats(ctx context.Context, date string) (json.RawMessage, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	client, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s.debug("Fetching stats", zap.String("date", date))
	return timed("get_stats", func() (json.RawMessage, error) {
		return client.GetStats(ctx, date)
	})
}

// Activities returns a page of the activity list. The window is passed to
// Garmin as given; out-of-range values are for the upstream to reject.
func (s *Service) Activities(ctx context.Context, start, limit int) (json.RawMessage, error) {
	client, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s.debug("Fetching activities", zap.Int("start", start), zap.Int("limit", limit))
	return timed("get_activities", func() (json.RawMessage, error) {
		return client.GetActivities(ctx, start, limit)
	})
}

// Activity returns the detail object for id.
func (s *Service) Activity(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, &garmin.ValidationError{Field: "id", Message: "activity id is required"}
	}
	client, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	s.debug("Fetching activity details", zap.String("activity_id", id))
	return timed("get_activity", func() (json.RawMessage, error) {
		return client.GetActivity(ctx, id)
	})
}

// DownloadActivity fetches the activity file, retrying per the download
// policy. Exhaustion is reported as *retry.ExhaustedError.
func (s *Service) DownloadActivity(ctx context.Context, id string, format garmin.Format) (*Download, error) {
	if id == "" {
		return nil, &garmin.ValidationError{Field: "id", Message: "activity id is required"}
	}
	if format == "" {
		format = garmin.FormatFIT
	}
	client, err := s.Sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	policy := s.Download
	if policy.MaxAttempts == 0 {
		policy = DefaultDownloadPolicy()
	}
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		s.warn("Activity download attempt failed, retrying",
			zap.String("activity_id", id),
			zap.String("format", string(format)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	data, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) ([]byte, error) {
		data, err := timed("download_activity", func() ([]byte, error) {
			return client.DownloadActivity(ctx, id, format)
		})
		metrics.RecordDownloadAttempt(err == nil)
		return data, err
	})
	if err != nil {
		metrics.RecordDownloadExhausted()
		return nil, err
	}

	return &Download{
		ActivityID: id,
		Format:     format,
		Data:       data,
		FileType:   garmin.DetectFileType(data),
	}, nil
}

// Health reports the session state. With no cached session it attempts one
// login inline; ok is false when that login fails.
func (s *Service) Health(ctx context.Context) (report HealthReport, ok bool) {
	report.Service = s.name()

	if s.Sessions.Cached() {
		report.Status = HealthStatusHealthy
		report.AuthStatus = AuthStatusAuthenticated
		return report, true
	}

	if _, err := s.Sessions.Reauthenticate(ctx); err != nil {
		report.Status = HealthStatusUnhealthy
		report.AuthStatus = AuthStatusUnauthenticated
		report.Error = err.Error()
		return report, false
	}

	report.Status = HealthStatusHealthy
	report.AuthStatus = AuthStatusReauthenticated
	return report, true
}

func (s *Service) name() string {
	if s.Name != "" {
		return s.Name
	}
	return DefaultServiceName
}

func (s *Service) debug(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Debug(msg, fields...)
	}
}

func (s *Service) warn(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Warn(msg, fields...)
	}
}

func timed[T any](operation string, call func() (T, error)) (T, error) {
	start := time.Now()
	result, err := call()
	metrics.RecordUpstreamCall(operation, err == nil, time.Since(start))
	return result, err
}

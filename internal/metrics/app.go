package metrics

import (
	"time"

	"github.com/garminwrap/garminwrap/internal/observability"
)

// Upstream and session metrics following Prometheus conventions
const (
	UpstreamCallsTotal      = "garmin_upstream_calls_total"
	UpstreamCallDuration    = "garmin_upstream_duration_ms"
	LoginsTotal             = "garmin_logins_total"
	DownloadAttemptsTotal   = "garmin_download_attempts_total"
	DownloadsExhaustedTotal = "garmin_downloads_exhausted_total"
	HealthCheckTotal        = "app_health_check_total"
	HealthCheckDuration     = "app_health_check_duration_ms"
	ServerStartTime         = "app_server_start_time_seconds"
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordUpstreamCall records one upstream data call and its latency
func RecordUpstreamCall(operation string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		UpstreamCallsTotal,
		1,
		map[string]string{
			"operation": operation,
			"status":    statusLabel(success),
		},
	)

	_ = observability.TelemetrySystem.Histogram(
		UpstreamCallDuration,
		duration,
		map[string]string{
			"operation": operation,
		},
	)
}

// RecordLogin records an upstream login attempt
func RecordLogin(success bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			LoginsTotal,
			1,
			map[string]string{
				"status": statusLabel(success),
			},
		)
	}
}

// RecordDownloadAttempt records a single activity download attempt
func RecordDownloadAttempt(success bool) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			DownloadAttemptsTotal,
			1,
			map[string]string{
				"status": statusLabel(success),
			},
		)
	}
}

// RecordDownloadExhausted records a download that failed every attempt
func RecordDownloadExhausted() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			DownloadsExhaustedTotal,
			1,
			nil,
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

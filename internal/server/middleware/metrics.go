package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/observability"
)

// HTTP metric names
const (
	RequestsTotal        = "http_requests_total"
	RequestDuration      = "http_request_duration_ms"
	ResponseSizeBytes    = "http_response_size_bytes"
	ErrorResponsesTotal  = "http_errors_total"
	unknownEndpointLabel = "/unknown"
)

// statusRecorder captures the status and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += int64(n)
	return n, err
}

// EndpointPattern returns the chi route pattern for r so activity IDs never
// become metric labels. Requests outside the router are bucketed by path.
func EndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	path := r.URL.Path
	switch {
	case path == "/" || path == "/stats" || path == "/version" || path == "/metrics":
		return path
	case path == "/health" || strings.HasPrefix(path, "/health/"):
		return "/health/*"
	case path == "/activities" || path == "/activities/":
		return "/activities/"
	case strings.HasPrefix(path, "/activities/") && strings.HasSuffix(path, "/download"):
		return "/activities/{id}/download"
	case strings.HasPrefix(path, "/activities/"):
		return "/activities/{id}"
	default:
		return unknownEndpointLabel
	}
}

// RequestMetrics emits request count, latency, response size and error
// counters, then writes one access log line per request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		endpoint := EndpointPattern(r)
		status := strconv.Itoa(rec.status)

		if sys := observability.TelemetrySystem; sys != nil {
			labels := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}
			_ = sys.Counter(RequestsTotal, 1, labels)
			_ = sys.Histogram(RequestDuration, duration, labels)
			_ = sys.Gauge(ResponseSizeBytes, float64(rec.bytes), map[string]string{"method": r.Method, "endpoint": endpoint})

			if rec.status >= 400 {
				errorType := "client_error"
				if rec.status >= 500 {
					errorType = "server_error"
				}
				_ = sys.Counter(ErrorResponsesTotal, 1, map[string]string{
					"method":     r.Method,
					"endpoint":   endpoint,
					"status":     status,
					"error_type": errorType,
				})
			}
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration),
				zap.Int64("response_size", rec.bytes),
				zap.String("request_id", GetRequestID(r.Context())))
		}
	})
}

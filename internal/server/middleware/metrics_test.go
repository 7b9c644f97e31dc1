package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garminwrap/garminwrap/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	saved := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = saved })
	return collector
}

func TestRequestMetricsSuccess(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalSteps":100}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats?date=2024-03-01", nil))

	assert.Equal(t, `{"totalSteps":100}`, rec.Body.String())
	assert.Equal(t, 1, collector.CountMetricsByName(RequestsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(RequestDuration))
	assert.Equal(t, 1, collector.CountMetricsByName(ResponseSizeBytes))
	assert.Zero(t, collector.CountMetricsByName(ErrorResponsesTotal))
}

func TestRequestMetricsCountsErrors(t *testing.T) {
	collector := setupTelemetry(t)

	for _, status := range []int{http.StatusBadRequest, http.StatusServiceUnavailable} {
		handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/activities", nil))
	}

	assert.Equal(t, 2, collector.CountMetricsByName(ErrorResponsesTotal))
}

func TestRequestMetricsWithoutTelemetry(t *testing.T) {
	saved := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = saved })

	handler := RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestEndpointPatternFallback(t *testing.T) {
	tests := map[string]string{
		"/":                        "/",
		"/stats":                   "/stats",
		"/version":                 "/version",
		"/metrics":                 "/metrics",
		"/health":                  "/health/*",
		"/health/ready":            "/health/*",
		"/activities":              "/activities/",
		"/activities/42":           "/activities/{id}",
		"/activities/42/download":  "/activities/{id}/download",
		"/api/users/123":           "/unknown",
		"/activities-and-more/xyz": "/unknown",
	}
	for path, want := range tests {
		assert.Equal(t, want, EndpointPattern(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
}

func TestEndpointPatternUsesChiRoute(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req)
			seen = EndpointPattern(req)
		})
	})
	r.Get("/activities/{id}/download", func(w http.ResponseWriter, req *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/activities/9876543210/download", nil))
	assert.Equal(t, "/activities/{id}/download", seen)
}

func TestRequestMetricsEchoesRequestID(t *testing.T) {
	setupTelemetry(t)

	handler := RequestID(RequestMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set(RequestIDHeader, "trace-me")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "trace-me", rec.Header().Get(RequestIDHeader))
}

package metrics

import (
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garminwrap/garminwrap/internal/observability"
)

func withCollector(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	saved := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = saved })
	return collector
}

func TestRecordUpstreamCall(t *testing.T) {
	collector := withCollector(t)

	RecordUpstreamCall("get_stats", true, 25*time.Millisecond)
	RecordUpstreamCall("get_stats", false, 5*time.Millisecond)

	assert.Equal(t, 2, collector.CountMetricsByName(UpstreamCallsTotal))
	assert.Equal(t, 2, collector.CountMetricsByName(UpstreamCallDuration))
}

func TestRecordSessionAndDownloadCounters(t *testing.T) {
	collector := withCollector(t)

	RecordLogin(true)
	RecordLogin(false)
	RecordDownloadAttempt(false)
	RecordDownloadAttempt(true)
	RecordDownloadExhausted()
	SetServerStartTime(time.Now().Unix())

	assert.Equal(t, 2, collector.CountMetricsByName(LoginsTotal))
	assert.Equal(t, 2, collector.CountMetricsByName(DownloadAttemptsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(DownloadsExhaustedTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(ServerStartTime))
}

func TestRecordersAreNoopsWithoutTelemetry(t *testing.T) {
	saved := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = saved })

	assert.NotPanics(t, func() {
		RecordUpstreamCall("get_activity", true, time.Millisecond)
		RecordLogin(true)
		RecordDownloadAttempt(true)
		RecordDownloadExhausted()
		RecordHealthCheck("garmin_session", true, time.Millisecond)
	})
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "success", statusLabel(true))
	assert.Equal(t, "failure", statusLabel(false))
}

func TestRecordErrorCounters(t *testing.T) {
	collector := withCollector(t)

	RecordError("AUTH_FAILED", 503)
	RecordErrorByEndpoint("/activities/{id}", "AUTH_FAILED")
	RecordPanic()

	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsTotal))
	assert.Equal(t, 1, collector.CountMetricsByName(ErrorsByEndpoint))
	assert.Equal(t, 1, collector.CountMetricsByName(PanicsTotal))
}

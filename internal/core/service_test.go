package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garminwrap/garminwrap/internal/garmin"
	"github.com/garminwrap/garminwrap/internal/garmin/garmintest"
	"github.com/garminwrap/garminwrap/internal/retry"
	"github.com/garminwrap/garminwrap/internal/session"
)

func newTestService(upstream *garmintest.Upstream) (*Service, *[]time.Duration) {
	waits := &[]time.Duration{}
	manager := session.NewManager(upstream.Factory(), garmin.NewCredentials("runner@example.com", "secret"))
	svc := NewService(manager)
	svc.Download.Sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return svc, waits
}

func TestStatsRequiresDateBeforeUpstreamContact(t *testing.T) {
	upstream := &garmintest.Upstream{}
	svc, _ := newTestService(upstream)

	for _, date := range []string{"", "yesterday", "2024-13-01"} {
		_, err := svc.Stats(context.Background(), date)

		var validation *garmin.ValidationError
		require.True(t, errors.As(err, &validation), "date %q", date)
		assert.Equal(t, "date", validation.Field)
	}

	logins, data := upstream.Counts()
	assert.Zero(t, logins)
	assert.Zero(t, data)
}

func TestStatsPassThrough(t *testing.T) {
	upstream := &garmintest.Upstream{
		Stats: map[string]json.RawMessage{"2024-03-01": json.RawMessage(`{"totalSteps":9000}`)},
	}
	svc, _ := newTestService(upstream)

	stats, err := svc.Stats(context.Background(), "2024-03-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalSteps":9000}`, string(stats))
}

func TestActivityRoundTrip(t *testing.T) {
	detail := json.RawMessage(`{"activityId":42,"activityName":"Tempo","summaryDTO":{"distance":10012.5}}`)
	upstream := &garmintest.Upstream{Details: map[string]json.RawMessage{"42": detail}}
	svc, _ := newTestService(upstream)

	got, err := svc.Activity(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, string(detail), string(got))
}

func TestActivitiesPassesWindowThrough(t *testing.T) {
	upstream := &garmintest.Upstream{}
	svc, _ := newTestService(upstream)

	_, err := svc.Activities(context.Background(), 20, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, upstream.LastStart)
	assert.Equal(t, 5, upstream.LastLimit)

	_, err = svc.Activities(context.Background(), -1, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, upstream.LastStart)
	assert.Equal(t, 0, upstream.LastLimit)
}

func TestAuthFailureReturnsNoData(t *testing.T) {
	upstream := &garmintest.Upstream{LoginErr: errors.New("invalid credentials")}
	svc, _ := newTestService(upstream)
	ctx := context.Background()

	_, err := svc.Activity(ctx, "1")
	var authErr *session.AuthError
	require.True(t, errors.As(err, &authErr))

	_, err = svc.Activities(ctx, 0, 10)
	require.True(t, errors.As(err, &authErr))

	download, err := svc.DownloadActivity(ctx, "1", garmin.FormatFIT)
	require.True(t, errors.As(err, &authErr))
	assert.Nil(t, download)

	_, data := upstream.Counts()
	assert.Zero(t, data)
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	upstream := &garmintest.Upstream{
		DownloadErrs: []error{errors.New("502 bad gateway"), errors.New("connection reset")},
		Files:        map[string][]byte{"7": []byte("PK\x03\x04zip")},
	}
	svc, waits := newTestService(upstream)

	download, err := svc.DownloadActivity(context.Background(), "7", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("PK\x03\x04zip"), download.Data)
	assert.Equal(t, "activity_7.fit", download.Filename())
	assert.Equal(t, "application/zip", download.ContentType())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	assert.Equal(t, 3, upstream.DownloadCalls)
}

func TestDownloadExhausted(t *testing.T) {
	upstream := &garmintest.Upstream{
		DownloadErrs: []error{errors.New("a"), errors.New("b"), errors.New("c")},
		Files:        map[string][]byte{"7": []byte("never served")},
	}
	svc, waits := newTestService(upstream)

	download, err := svc.DownloadActivity(context.Background(), "7", garmin.FormatGPX)
	require.Error(t, err)
	assert.Nil(t, download)

	var exhausted *retry.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, upstream.DownloadCalls)
	assert.Len(t, *waits, 2)
	assert.Equal(t, garmin.FormatGPX, upstream.LastFormat)
}

func TestHealthWithCachedSession(t *testing.T) {
	upstream := &garmintest.Upstream{}
	svc, _ := newTestService(upstream)
	ctx := context.Background()

	_, err := svc.Sessions.Acquire(ctx)
	require.NoError(t, err)

	report, ok := svc.Health(ctx)
	assert.True(t, ok)
	assert.Equal(t, HealthReport{Status: "healthy", AuthStatus: "authenticated", Service: "garmin-api"}, report)

	logins, _ := upstream.Counts()
	assert.Equal(t, 1, logins)
}

func TestHealthReauthenticates(t *testing.T) {
	upstream := &garmintest.Upstream{}
	svc, _ := newTestService(upstream)

	report, ok := svc.Health(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "reauthenticated", report.AuthStatus)
	assert.True(t, svc.Sessions.Cached())
}

func TestHealthUnauthenticated(t *testing.T) {
	upstream := &garmintest.Upstream{LoginErr: errors.New("sso down")}
	svc, _ := newTestService(upstream)

	report, ok := svc.Health(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "unauthenticated", report.AuthStatus)
	assert.Contains(t, report.Error, "sso down")
}

func TestDownloadContentTypeForCSV(t *testing.T) {
	d := &Download{ActivityID: "1", Format: garmin.FormatCSV, FileType: garmin.FileTypeUnknown}
	assert.Equal(t, "text/csv", d.ContentType())
	assert.Equal(t, "activity_1.csv", d.Filename())
}

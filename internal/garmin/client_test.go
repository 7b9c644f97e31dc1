package garmin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "runner@example.com"
	testPassword = "hunter2"
)

// fakeConnect emulates the subset of Garmin SSO and Connect used by HTTPClient.
func fakeConnect(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/sso/signin", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "SSO_STATE", Value: "init", Path: "/"})
			_, _ = w.Write([]byte("<html>sign in</html>"))
		case http.MethodPost:
			_ = r.ParseForm()
			if r.PostForm.Get("username") != testEmail || r.PostForm.Get("password") != testPassword {
				_, _ = w.Write([]byte(`{"error":"Invalid username or password"}`))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "GARMIN-SSO", Value: "1", Path: "/"})
			_, _ = w.Write([]byte("<html>Success</html>"))
		}
	})
	requireSession := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("GARMIN-SSO"); err != nil {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/modern/", requireSession(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>connect</html>"))
	}))
	mux.HandleFunc("/modern/proxy/userprofile-service/socialProfile", requireSession(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"displayName":"runner-42"}`))
	}))
	mux.HandleFunc("/modern/proxy/usersummary-service/usersummary/daily/runner-42", requireSession(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("calendarDate") != "2024-03-01" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad date"))
			return
		}
		_, _ = w.Write([]byte(`{"totalSteps":12000,"calendarDate":"2024-03-01"}`))
	}))
	mux.HandleFunc("/modern/proxy/activitylist-service/activities/search/activities", requireSession(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		_, _ = w.Write([]byte(`[{"activityId":1,"start":"` + q.Get("start") + `","limit":"` + q.Get("limit") + `"}]`))
	}))
	mux.HandleFunc("/modern/proxy/activity-service/activity/77", requireSession(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activityId":77,"activityName":"Morning Run"}`))
	}))
	mux.HandleFunc("/modern/proxy/activity-service/activity/404", requireSession(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("activity not found"))
	}))
	mux.HandleFunc("/modern/proxy/download-service/files/activity/77", requireSession(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PK\x03\x04fit-archive"))
	}))
	mux.HandleFunc("/modern/proxy/download-service/export/gpx/activity/77", requireSession(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><gpx></gpx>`))
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *httptest.Server, email, password string) *HTTPClient {
	return NewHTTPClient(NewCredentials(email, password), Options{
		BaseURL: server.URL,
		SSOURL:  server.URL + "/sso/signin",
	})
}

func TestHTTPClientLoginAndFetch(t *testing.T) {
	server := fakeConnect(t)
	client := newTestClient(server, testEmail, testPassword)
	ctx := context.Background()

	require.NoError(t, client.Login(ctx))
	assert.Equal(t, "runner-42", client.displayName)

	stats, err := client.GetStats(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.JSONEq(t, `{"totalSteps":12000,"calendarDate":"2024-03-01"}`, string(stats))

	activities, err := client.GetActivities(ctx, 5, 20)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"activityId":1,"start":"5","limit":"20"}]`, string(activities))

	detail, err := client.GetActivity(ctx, "77")
	require.NoError(t, err)
	assert.JSONEq(t, `{"activityId":77,"activityName":"Morning Run"}`, string(detail))
}

func TestHTTPClientDownloadFormats(t *testing.T) {
	server := fakeConnect(t)
	client := newTestClient(server, testEmail, testPassword)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx))

	data, err := client.DownloadActivity(ctx, "77", FormatFIT)
	require.NoError(t, err)
	assert.Equal(t, FileTypeZIP, DetectFileType(data))

	data, err = client.DownloadActivity(ctx, "77", FormatGPX)
	require.NoError(t, err)
	assert.Equal(t, FileTypeGPX, DetectFileType(data))
}

func TestHTTPClientLoginRejected(t *testing.T) {
	server := fakeConnect(t)
	client := newTestClient(server, testEmail, "wrong")

	err := client.Login(context.Background())
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, "login", upstream.Operation)
}

func TestHTTPClientLoginMissingCredentials(t *testing.T) {
	client := NewHTTPClient(NewCredentials("", ""), Options{BaseURL: "http://127.0.0.1:1"})

	err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestHTTPClientRequiresLogin(t *testing.T) {
	server := fakeConnect(t)
	client := newTestClient(server, testEmail, testPassword)

	_, err := client.GetActivity(context.Background(), "77")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestHTTPClientUpstreamStatusError(t *testing.T) {
	server := fakeConnect(t)
	client := newTestClient(server, testEmail, testPassword)
	ctx := context.Background()
	require.NoError(t, client.Login(ctx))

	_, err := client.GetActivity(ctx, "404")
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Contains(t, err.Error(), "activity not found")
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatFIT, format)

	format, err = ParseFormat("GPX")
	require.NoError(t, err)
	assert.Equal(t, FormatGPX, format)

	_, err = ParseFormat("docx")
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "format", validation.Field)
}

func TestCredentialsEmpty(t *testing.T) {
	assert.True(t, NewCredentials("", "secret").Empty())
	assert.True(t, NewCredentials("me@example.com", "").Empty())
	assert.False(t, NewCredentials("me@example.com", "secret").Empty())
}

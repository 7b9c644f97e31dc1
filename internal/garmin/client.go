package garmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Garmin Connect web origin.
	DefaultBaseURL = "https://connect.garmin.com"

	// DefaultSSOURL is the Garmin single sign-on form endpoint.
	DefaultSSOURL = "https://sso.garmin.com/sso/signin"

	// DefaultUserAgent mimics a desktop browser; Garmin rejects obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// DefaultTimeout bounds each upstream HTTP request.
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 512
)

// ErrMissingCredentials is returned by Login when email or password is unset.
var ErrMissingCredentials = errors.New("GARMIN_EMAIL and GARMIN_PASSWORD must be set")

// ErrNotAuthenticated is returned by data calls made before a successful Login.
var ErrNotAuthenticated = errors.New("client is not authenticated")

// loginFailureMarkers appear in the sign-in response body when Garmin rejects
// the submitted credentials.
var loginFailureMarkers = []string{`"error"`, "invalid", "locked"}

// Options configures HTTPClient endpoints and transport.
type Options struct {
	BaseURL   string
	SSOURL    string
	UserAgent string
	Timeout   time.Duration

	// Transport overrides the HTTP round tripper (tests).
	Transport http.RoundTripper
}

// HTTPClient talks to Garmin Connect using the browser sign-in flow and the
// session cookies it yields.
type HTTPClient struct {
	creds       Credentials
	baseURL     string
	ssoURL      string
	userAgent   string
	http        *http.Client
	displayName string
}

// NewFactory returns a Factory producing HTTPClients with opts.
func NewFactory(opts Options) Factory {
	return func(creds Credentials) Client {
		return NewHTTPClient(creds, opts)
	}
}

// NewHTTPClient builds an unauthenticated client with its own cookie jar.
func NewHTTPClient(creds Credentials, opts Options) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// cookiejar.New only fails when given a broken PublicSuffixList.
	jar, _ := cookiejar.New(nil)

	return &HTTPClient{
		creds:     creds,
		baseURL:   strings.TrimRight(valueOr(opts.BaseURL, DefaultBaseURL), "/"),
		ssoURL:    valueOr(opts.SSOURL, DefaultSSOURL),
		userAgent: valueOr(opts.UserAgent, DefaultUserAgent),
		http: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
	}
}

// Login performs the sign-in flow: fetch the form, submit the credentials,
// open the Connect app and resolve the account display name.
func (c *HTTPClient) Login(ctx context.Context) error {
	if c.creds.Empty() {
		return ErrMissingCredentials
	}

	params := url.Values{}
	params.Set("service", c.baseURL+"/modern/")
	params.Set("gauthHost", c.ssoURL)
	signinURL := c.ssoURL + "?" + params.Encode()

	resp, err := c.do(ctx, http.MethodGet, signinURL, nil, nil)
	if err != nil {
		return &UpstreamError{Operation: "login", Err: fmt.Errorf("failed to get sign-in page: %w", err)}
	}
	_ = drain(resp)
	if resp.StatusCode >= http.StatusBadRequest {
		return &UpstreamError{Operation: "login", StatusCode: resp.StatusCode, Message: "sign-in page unavailable"}
	}

	var body []byte
	err = c.creds.withPassword(func(password string) error {
		form := url.Values{}
		form.Set("username", c.creds.Email)
		form.Set("password", password)
		form.Set("embed", "false")
		form.Set("displayNameRequired", "false")

		headers := http.Header{}
		headers.Set("Content-Type", "application/x-www-form-urlencoded")
		headers.Set("Origin", originOf(c.ssoURL))
		headers.Set("Referer", signinURL)

		resp, err := c.do(ctx, http.MethodPost, signinURL, strings.NewReader(form.Encode()), headers)
		if err != nil {
			return fmt.Errorf("failed to submit credentials: %w", err)
		}
		defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read sign-in response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("sign-in rejected with status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return &UpstreamError{Operation: "login", Err: err}
	}

	lower := strings.ToLower(string(body))
	for _, marker := range loginFailureMarkers {
		if strings.Contains(lower, marker) {
			return &UpstreamError{Operation: "login", Message: "credentials rejected by Garmin SSO"}
		}
	}

	resp, err = c.do(ctx, http.MethodGet, c.baseURL+"/modern/", nil, nil)
	if err != nil {
		return &UpstreamError{Operation: "login", Err: fmt.Errorf("failed to open Garmin Connect: %w", err)}
	}
	_ = drain(resp)
	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Operation: "login", StatusCode: resp.StatusCode, Message: "Garmin Connect session not established"}
	}

	profile, err := c.get(ctx, "login", "/modern/proxy/userprofile-service/socialProfile", nil)
	if err != nil {
		return err
	}
	var payload struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(profile, &payload); err != nil || payload.DisplayName == "" {
		return &UpstreamError{Operation: "login", Message: "profile did not include a display name"}
	}

	c.displayName = payload.DisplayName
	return nil
}

// GetStats returns the daily user summary for date.
func (c *HTTPClient) GetStats(ctx context.Context, date string) (json.RawMessage, error) {
	if c.displayName == "" {
		return nil, &UpstreamError{Operation: "get_stats", Err: ErrNotAuthenticated}
	}
	query := url.Values{}
	query.Set("calendarDate", date)
	return c.getJSON(ctx, "get_stats", "/modern/proxy/usersummary-service/usersummary/daily/"+url.PathEscape(c.displayName), query)
}

// GetActivities returns limit activities starting at offset start.
func (c *HTTPClient) GetActivities(ctx context.Context, start, limit int) (json.RawMessage, error) {
	if c.displayName == "" {
		return nil, &UpstreamError{Operation: "get_activities", Err: ErrNotAuthenticated}
	}
	query := url.Values{}
	query.Set("start", fmt.Sprint(start))
	query.Set("limit", fmt.Sprint(limit))
	return c.getJSON(ctx, "get_activities", "/modern/proxy/activitylist-service/activities/search/activities", query)
}

// GetActivity returns the detail object for activity id.
func (c *HTTPClient) GetActivity(ctx context.Context, id string) (json.RawMessage, error) {
	if c.displayName == "" {
		return nil, &UpstreamError{Operation: "get_activity", Err: ErrNotAuthenticated}
	}
	return c.getJSON(ctx, "get_activity", "/modern/proxy/activity-service/activity/"+url.PathEscape(id), nil)
}

// DownloadActivity fetches the activity file. FIT originals are served as a
// zip archive by Garmin.
func (c *HTTPClient) DownloadActivity(ctx context.Context, id string, format Format) ([]byte, error) {
	if c.displayName == "" {
		return nil, &UpstreamError{Operation: "download_activity", Err: ErrNotAuthenticated}
	}
	return c.get(ctx, "download_activity", downloadPath(id, format), nil)
}

func downloadPath(id string, format Format) string {
	escaped := url.PathEscape(id)
	switch format {
	case FormatTCX, FormatGPX, FormatKML, FormatCSV:
		return fmt.Sprintf("/modern/proxy/download-service/export/%s/activity/%s", format, escaped)
	default:
		return "/modern/proxy/download-service/files/activity/" + escaped
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, op, path string, query url.Values) (json.RawMessage, error) {
	body, err := c.get(ctx, op, path, query)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &UpstreamError{Operation: op, StatusCode: http.StatusOK, Message: "upstream returned invalid JSON"}
	}
	return json.RawMessage(body), nil
}

func (c *HTTPClient) get(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json, */*")
	headers.Set("NK", "NT")

	resp, err := c.do(ctx, http.MethodGet, target, nil, headers)
	if err != nil {
		return nil, &UpstreamError{Operation: op, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    readBodyForError(resp.Body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Operation: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, nil
}

func (c *HTTPClient) do(ctx context.Context, method, target string, body io.Reader, headers http.Header) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.http.Do(req)
}

func readBodyForError(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}

func drain(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func originOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	return parsed.Scheme + "://" + parsed.Host
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// Package garmin provides the upstream Garmin Connect capability used by the
// session manager and the HTTP router.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/awnumar/memguard"
)

// Client is the upstream fitness-service capability. Every data call returns
// the upstream payload verbatim.
type Client interface {
	// Login authenticates the client with its configured credentials.
	Login(ctx context.Context) error

	// GetStats returns the daily summary for date (YYYY-MM-DD).
	GetStats(ctx context.Context, date string) (json.RawMessage, error)

	// GetActivities returns a page of activities starting at start.
	GetActivities(ctx context.Context, start, limit int) (json.RawMessage, error)

	// GetActivity returns the detail object for a single activity.
	GetActivity(ctx context.Context, id string) (json.RawMessage, error)

	// DownloadActivity returns the raw activity file in the requested format.
	DownloadActivity(ctx context.Context, id string, format Format) ([]byte, error)
}

// Factory builds an unauthenticated client for the given credentials.
type Factory func(creds Credentials) Client

// Credentials identify the upstream account. The password is kept in a
// memguard enclave and only decrypted while a login request is built.
type Credentials struct {
	Email    string
	password *memguard.Enclave
}

// NewCredentials seals password into an enclave. An empty password yields
// credentials that report Empty.
func NewCredentials(email, password string) Credentials {
	creds := Credentials{Email: strings.TrimSpace(email)}
	if password != "" {
		creds.password = memguard.NewEnclave([]byte(password))
	}
	return creds
}

// Empty reports whether either credential value is missing.
func (c Credentials) Empty() bool {
	return c.Email == "" || c.password == nil
}

// withPassword opens the enclave for the duration of fn.
func (c Credentials) withPassword(fn func(password string) error) error {
	if c.password == nil {
		return fmt.Errorf("password not configured")
	}
	buf, err := c.password.Open()
	if err != nil {
		return fmt.Errorf("failed to open credential enclave: %w", err)
	}
	defer buf.Destroy()
	return fn(string(buf.Bytes()))
}

// Format is an activity download format.
type Format string

const (
	FormatFIT Format = "fit"
	FormatTCX Format = "tcx"
	FormatGPX Format = "gpx"
	FormatKML Format = "kml"
	FormatCSV Format = "csv"
)

// ParseFormat validates a requested download format. Empty selects FIT.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return FormatFIT, nil
	case FormatFIT, FormatTCX, FormatGPX, FormatKML, FormatCSV:
		return f, nil
	default:
		return "", &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported download format %q", value)}
	}
}

// UpstreamError reports a failed upstream operation.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Operation, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: upstream returned status %d: %s", e.Operation, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ValidationError reports invalid caller input detected before any upstream
// contact.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

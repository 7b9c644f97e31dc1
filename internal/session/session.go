// Package session owns the process-wide upstream session and decides when to
// re-authenticate.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/garmin"
	"github.com/garminwrap/garminwrap/internal/metrics"
)

// DefaultInterval is how long a successful login is trusted before the next
// acquisition attempts a fresh one.
const DefaultInterval = 60 * time.Second

// Acquirer hands out a usable upstream client.
type Acquirer interface {
	Acquire(ctx context.Context) (garmin.Client, error)
	Reauthenticate(ctx context.Context) (garmin.Client, error)
	Cached() bool
}

// AuthError reports that no authenticated client could be produced.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "authentication with Garmin Connect failed"
	}
	return "authentication with Garmin Connect failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Status is a point-in-time view of the cached session.
type Status struct {
	Authenticated bool      `json:"authenticated"`
	LastAuth      time.Time `json:"last_auth,omitempty"`
	Logins        int       `json:"logins"`
	FailedLogins  int       `json:"failed_logins"`
}

// Manager caches a single authenticated client. The cached fields are guarded
// by mu, but logins run outside the lock: concurrent callers past the interval
// may each log in, and the last success wins.
type Manager struct {
	Factory     garmin.Factory
	Credentials garmin.Credentials
	Interval    time.Duration
	Clock       func() time.Time
	Logger      *logging.Logger

	mu       sync.Mutex
	client   garmin.Client
	lastAuth time.Time
	logins   int
	failures int
}

// NewManager returns a Manager with the default interval.
func NewManager(factory garmin.Factory, creds garmin.Credentials) *Manager {
	return &Manager{
		Factory:     factory,
		Credentials: creds,
		Interval:    DefaultInterval,
	}
}

// Acquire returns the cached client while it is fresh, otherwise logs in
// again. A failed login falls back to the previously cached client if any.
func (m *Manager) Acquire(ctx context.Context) (garmin.Client, error) {
	m.mu.Lock()
	cached, lastAuth := m.client, m.lastAuth
	m.mu.Unlock()

	if cached != nil && m.now().Sub(lastAuth) < m.interval() {
		return cached, nil
	}

	return m.Reauthenticate(ctx)
}

// Reauthenticate performs one login regardless of the cache interval.
func (m *Manager) Reauthenticate(ctx context.Context) (garmin.Client, error) {
	if m.Factory == nil {
		return nil, &AuthError{Err: garmin.ErrMissingCredentials}
	}

	client := m.Factory(m.Credentials)
	err := client.Login(ctx)
	metrics.RecordLogin(err == nil)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		m.client = client
		m.lastAuth = m.now()
		m.logins++
		m.logInfo("Authenticated with Garmin Connect", zap.String("account", m.Credentials.Email))
		return client, nil
	}

	m.failures++
	if m.client != nil {
		m.logWarn("Garmin login failed, reusing previous session",
			zap.String("account", m.Credentials.Email),
			zap.Time("last_auth", m.lastAuth),
			zap.Error(err))
		return m.client, nil
	}

	m.logError("Garmin login failed",
		zap.String("account", m.Credentials.Email),
		zap.Error(err))
	return nil, &AuthError{Err: err}
}

// Cached reports whether a session handle exists.
func (m *Manager) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// Status returns a snapshot of the session state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Authenticated: m.client != nil,
		LastAuth:      m.lastAuth,
		Logins:        m.logins,
		FailedLogins:  m.failures,
	}
}

func (m *Manager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *Manager) interval() time.Duration {
	if m.Interval > 0 {
		return m.Interval
	}
	return DefaultInterval
}

func (m *Manager) logInfo(msg string, fields ...zap.Field) {
	if m.Logger != nil {
		m.Logger.Info(msg, fields...)
	}
}

func (m *Manager) logWarn(msg string, fields ...zap.Field) {
	if m.Logger != nil {
		m.Logger.Warn(msg, fields...)
	}
}

func (m *Manager) logError(msg string, fields ...zap.Field) {
	if m.Logger != nil {
		m.Logger.Error(msg, fields...)
	}
}

// Package garmintest provides an in-memory garmin.Client for tests.
package garmintest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/garminwrap/garminwrap/internal/garmin"
)

// Upstream is shared state behind every Fake client a factory produces, so a
// test can count logins across re-authentications.
type Upstream struct {
	mu sync.Mutex

	LoginErr   error
	Stats      map[string]json.RawMessage
	Activities json.RawMessage
	Details    map[string]json.RawMessage
	Files      map[string][]byte
	// DownloadErrs are returned by successive DownloadActivity calls before
	// the file is served.
	DownloadErrs []error
	DataErr      error

	Logins        int
	StatsCalls    int
	ListCalls     int
	DetailCalls   int
	DownloadCalls int
	LastStart     int
	LastLimit     int
	LastFormat    garmin.Format
}

// Factory returns a garmin.Factory producing clients backed by u.
func (u *Upstream) Factory() garmin.Factory {
	return func(creds garmin.Credentials) garmin.Client {
		return &Fake{upstream: u, creds: creds}
	}
}

// SetLoginErr changes the login outcome for subsequent logins.
func (u *Upstream) SetLoginErr(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.LoginErr = err
}

// Counts returns login and data call counters.
func (u *Upstream) Counts() (logins, data int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.Logins, u.StatsCalls + u.ListCalls + u.DetailCalls + u.DownloadCalls
}

// Fake is a garmin.Client served from an Upstream.
type Fake struct {
	upstream *Upstream
	creds    garmin.Credentials
	loggedIn bool
}

var errNotFound = errors.New("not found")

func (f *Fake) Login(ctx context.Context) error {
	u := f.upstream
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Logins++
	if u.LoginErr != nil {
		return u.LoginErr
	}
	f.loggedIn = true
	return nil
}

func (f *Fake) GetStats(ctx context.Context, date string) (json.RawMessage, error) {
	u := f.upstream
	u.mu.Lock()
	defer u.mu.Unlock()
	u.StatsCalls++
	if u.DataErr != nil {
		return nil, u.DataErr
	}
	stats, ok := u.Stats[date]
	if !ok {
		return nil, &garmin.UpstreamError{Operation: "get_stats", Err: errNotFound}
	}
	return stats, nil
}

func (f *Fake) GetActivities(ctx context.Context, start, limit int) (json.RawMessage, error) {
	u := f.upstream
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ListCalls++
	u.LastStart, u.LastLimit = start, limit
	if u.DataErr != nil {
		return nil, u.DataErr
	}
	if u.Activities == nil {
		return json.RawMessage(`[]`), nil
	}
	return u.Activities, nil
}

func (f *Fake) GetActivity(ctx context.Context, id string) (json.RawMessage, error) {
	u := f.upstream
	u.mu.Lock()
	defer u.mu.Unlock()
	u.DetailCalls++
	if u.DataErr != nil {
		return nil, u.DataErr
	}
	detail, ok := u.Details[id]
	if !ok {
		return nil, &garmin.UpstreamError{Operation: "get_activity", Err: errNotFound}
	}
	return detail, nil
}

func (f *Fake) DownloadActivity(ctx context.Context, id string, format garmin.Format) ([]byte, error) {
	u := f.upstream
	u.mu.Lock()
	defer u.mu.Unlock()
	u.DownloadCalls++
	u.LastFormat = format
	if len(u.DownloadErrs) > 0 {
		err := u.DownloadErrs[0]
		u.DownloadErrs = u.DownloadErrs[1:]
		return nil, err
	}
	data, ok := u.Files[id]
	if !ok {
		return nil, &garmin.UpstreamError{Operation: "download_activity", Err: errNotFound}
	}
	return data, nil
}

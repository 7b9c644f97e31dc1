package core

import (
	"fmt"

	"github.com/garminwrap/garminwrap/internal/garmin"
)

// Health and authentication states reported by the health probe.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"

	AuthStatusAuthenticated   = "authenticated"
	AuthStatusReauthenticated = "reauthenticated"
	AuthStatusUnauthenticated = "unauthenticated"
)

// HealthReport is the body of the health probe.
type HealthReport struct {
	Status     string `json:"status"`
	AuthStatus string `json:"auth_status"`
	Service    string `json:"service"`
	Error      string `json:"error,omitempty"`
}

// Download is a fetched activity file.
type Download struct {
	ActivityID string
	Format     garmin.Format
	Data       []byte
	FileType   garmin.FileType
}

// Filename is the attachment name: activity_{id}.{format}.
func (d *Download) Filename() string {
	return fmt.Sprintf("activity_%s.%s", d.ActivityID, d.Format)
}

// ContentType picks the media type from the sniffed file, falling back to the
// requested format for text exports.
func (d *Download) ContentType() string {
	if d.FileType == garmin.FileTypeUnknown && d.Format == garmin.FormatCSV {
		return "text/csv"
	}
	return d.FileType.ContentType()
}

package appid

import (
	"context"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName = "garminwrap"
	EnvPrefix  = "GARMINWRAP_"
)

var identity = appidentity.Identity{
	Vendor:      "garminwrap",
	BinaryName:  BinaryName,
	EnvPrefix:   EnvPrefix,
	ConfigName:  "garminwrap",
	Description: "HTTP wrapper exposing Garmin Connect activity data",
}

// Get returns the application identity. The identity is compiled in so the
// binary behaves the same inside and outside a checkout.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := identity
	return &id, nil
}

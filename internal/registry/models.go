// Package registry owns device identity, the per-device secret token,
// and liveness tracking.
package registry

import (
	"errors"
	"time"
)

// Registry errors.
var (
	// ErrDeviceNotFound is returned when no device matches the given ID.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrUnauthorized is returned when a presented credential does not
	// match the stored token, or the device has been deactivated.
	ErrUnauthorized = errors.New("invalid device credentials")
)

// Device represents a registered device.
type Device struct {
	// DeviceID is the globally unique, client-chosen identifier.
	DeviceID string

	// Name is the human-readable device name.
	Name string

	// Token is the server-generated secret the device authenticates with.
	// Issued once on first registration and never rotated by re-registration.
	Token string

	Model     string
	OSVersion string

	// PushToken is the opaque downstream push sink token, if the device
	// reported one.
	PushToken *string

	// Active gates all authenticated access. Deactivated devices keep
	// their history but can no longer authenticate.
	Active bool

	CreatedAt time.Time
	LastSeen  time.Time
}

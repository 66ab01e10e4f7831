package registry

import (
	"context"
	"time"
)

// Repository defines the interface for device persistence.
type Repository interface {
	// Upsert creates the device if it is unknown, otherwise updates its
	// mutable metadata and last_seen. It returns the stored token — the
	// existing one on update, the freshly assigned one on create — and
	// whether a new row was created.
	Upsert(ctx context.Context, device *Device) (token string, created bool, err error)

	// Get retrieves a device by ID.
	Get(ctx context.Context, deviceID string) (*Device, error)

	// Touch updates last_seen to the given time.
	Touch(ctx context.Context, deviceID string, seenAt time.Time) error

	// Deactivate marks a device inactive, cutting off authenticated access.
	Deactivate(ctx context.Context, deviceID string) error
}

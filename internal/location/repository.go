package location

import (
	"context"
	"time"
)

// Repository defines the interface for location persistence.
type Repository interface {
	// Insert appends an immutable sample and fills in its assigned ID.
	Insert(ctx context.Context, sample *Sample) error

	// Latest returns the most recent sample for a device by recorded_at,
	// with insertion order breaking ties. Returns ErrNoSamples when the
	// device has no history.
	Latest(ctx context.Context, deviceID string) (*Sample, error)

	// DeleteOlderThan removes samples recorded before the cutoff and
	// returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

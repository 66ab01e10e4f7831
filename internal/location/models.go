// Package location stores the append-only time series of device positions.
package location

import (
	"errors"
	"time"
)

// Location errors.
var (
	// ErrNoSamples is returned by Latest when a device has never
	// reported a position.
	ErrNoSamples = errors.New("no location samples")
)

// AccuracyUnknown is the sentinel accuracy value for samples whose
// reporter did not measure accuracy.
const AccuracyUnknown = -1

// DefaultProvider tags samples whose reporter did not name a source.
const DefaultProvider = "unknown"

// Sample is a single reported device position. Samples are immutable
// once written and are ordered by recorded_at with insertion order as
// the tie-break.
type Sample struct {
	ID       int64
	DeviceID string

	Lat float64
	Lng float64

	// Accuracy is in meters; AccuracyUnknown when not measured.
	Accuracy float64

	// Provider is a free-text source tag, e.g. "gps" or "sim_change".
	Provider string

	RecordedAt time.Time
}

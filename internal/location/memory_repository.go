package location

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	samples []*Sample
}

// NewInMemoryRepository creates a new in-memory location repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Insert appends a sample.
func (r *InMemoryRepository) Insert(_ context.Context, sample *Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sample.ID = r.nextID
	cpy := *sample
	r.samples = append(r.samples, &cpy)
	return nil
}

// Latest returns the most recent sample for a device.
func (r *InMemoryRepository) Latest(_ context.Context, deviceID string) (*Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *Sample
	for _, s := range r.samples {
		if s.DeviceID != deviceID {
			continue
		}
		if best == nil ||
			s.RecordedAt.After(best.RecordedAt) ||
			(s.RecordedAt.Equal(best.RecordedAt) && s.ID > best.ID) {
			best = s
		}
	}

	if best == nil {
		return nil, ErrNoSamples
	}

	cpy := *best
	return &cpy, nil
}

// DeleteOlderThan removes samples recorded before the cutoff.
func (r *InMemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*Sample
	var deleted int64
	for _, s := range r.samples {
		if s.RecordedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	r.samples = kept
	return deleted, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

package eventlog

import (
	"context"
	"sync"
	"time"
)

// Repository defines the interface for event persistence.
type Repository interface {
	// Insert appends a single event.
	Insert(ctx context.Context, event *Event) error

	// DeleteOlderThan removes events with event_at before the cutoff and
	// returns the number of rows removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	events []*Event
}

// NewInMemoryRepository creates a new in-memory event repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Insert appends an event.
func (r *InMemoryRepository) Insert(_ context.Context, event *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	cpy := *event
	cpy.ID = r.nextID
	r.events = append(r.events, &cpy)
	return nil
}

// DeleteOlderThan removes events older than the cutoff.
func (r *InMemoryRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*Event
	var deleted int64
	for _, e := range r.events {
		if e.EventAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return deleted, nil
}

// Events returns a snapshot of all stored events, oldest first.
func (r *InMemoryRepository) Events() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Event, 0, len(r.events))
	for _, e := range r.events {
		cpy := *e
		out = append(out, &cpy)
	}
	return out
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

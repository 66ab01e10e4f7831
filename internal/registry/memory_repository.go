package registry

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices: make(map[string]*Device),
	}
}

// Upsert creates or updates a device keyed by device_id.
func (r *InMemoryRepository) Upsert(_ context.Context, device *Device) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.devices[device.DeviceID]
	if !ok {
		cpy := *device
		r.devices[device.DeviceID] = &cpy
		return device.Token, true, nil
	}

	existing.Name = device.Name
	existing.Model = device.Model
	existing.OSVersion = device.OSVersion
	existing.PushToken = device.PushToken
	existing.LastSeen = device.CreatedAt
	return existing.Token, false, nil
}

// Get retrieves a device by ID.
func (r *InMemoryRepository) Get(_ context.Context, deviceID string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}

	cpy := *d
	return &cpy, nil
}

// Touch updates last_seen.
func (r *InMemoryRepository) Touch(_ context.Context, deviceID string, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[deviceID]; ok {
		d.LastSeen = seenAt
	}
	return nil
}

// Deactivate marks a device inactive.
func (r *InMemoryRepository) Deactivate(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return ErrDeviceNotFound
	}
	d.Active = false
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

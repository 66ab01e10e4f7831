package command

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	commands map[int64]*Command
}

// NewInMemoryRepository creates a new in-memory command repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		commands: make(map[int64]*Command),
	}
}

// Create stores a new pending command with the next global ID.
func (r *InMemoryRepository) Create(_ context.Context, cmd *Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	cmd.ID = r.nextID
	cpy := *cmd
	r.commands[cmd.ID] = &cpy
	return nil
}

// ListPending returns pending commands after the watermark, oldest first.
func (r *InMemoryRepository) ListPending(_ context.Context, deviceID string, sinceID int64, limit int) ([]*Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Command
	for _, cmd := range r.commands {
		if cmd.DeviceID == deviceID && cmd.ID > sinceID && cmd.Status == StatusPending {
			cpy := *cmd
			matched = append(matched, &cpy)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// UpdateStatus transitions the command scoped to (id, device_id).
func (r *InMemoryRepository) UpdateStatus(_ context.Context, deviceID string, commandID int64, status Status, resultMessage string, executedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd, ok := r.commands[commandID]
	if !ok || cmd.DeviceID != deviceID {
		return 0, nil
	}

	msg := resultMessage
	at := executedAt
	cmd.Status = status
	cmd.ResultMessage = &msg
	cmd.ExecutedAt = &at
	return 1, nil
}

// DeleteTerminalBefore removes old executed/failed commands.
func (r *InMemoryRepository) DeleteTerminalBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, cmd := range r.commands {
		if (cmd.Status == StatusExecuted || cmd.Status == StatusFailed) &&
			cmd.ExecutedAt != nil && cmd.ExecutedAt.Before(cutoff) {
			delete(r.commands, id)
			deleted++
		}
	}
	return deleted, nil
}

// Get returns a stored command by ID, for tests.
func (r *InMemoryRepository) Get(id int64) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmd, ok := r.commands[id]
	if !ok {
		return nil, false
	}
	cpy := *cmd
	return &cpy, true
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

package command

import (
	"context"
	"time"
)

// Repository defines the interface for command persistence.
type Repository interface {
	// Create stores a new pending command and fills in its assigned ID.
	// IDs are strictly increasing across all devices.
	Create(ctx context.Context, cmd *Command) error

	// ListPending returns up to limit pending commands for a device with
	// id > sinceID, ascending by id.
	ListPending(ctx context.Context, deviceID string, sinceID int64, limit int) ([]*Command, error)

	// UpdateStatus transitions the command matching both id and deviceID,
	// recording the result message and execution time. It returns the
	// number of rows affected: zero means no such command exists for this
	// device, which callers treat as a silent no-op.
	UpdateStatus(ctx context.Context, deviceID string, commandID int64, status Status, resultMessage string, executedAt time.Time) (int64, error)

	// DeleteTerminalBefore removes executed/failed commands whose
	// executed_at is before the cutoff, returning the rows removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

package command

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// The commands.id BIGSERIAL provides the globally monotonic watermark.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL command repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new pending command.
func (r *PostgresRepository) Create(ctx context.Context, cmd *Command) error {
	query := `
		INSERT INTO commands (device_id, type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		cmd.DeviceID,
		cmd.Type,
		cmd.Payload,
		cmd.Status,
		cmd.CreatedAt,
	).Scan(&cmd.ID)
}

// ListPending returns pending commands after the watermark, oldest first.
func (r *PostgresRepository) ListPending(ctx context.Context, deviceID string, sinceID int64, limit int) ([]*Command, error) {
	query := `
		SELECT id, device_id, type, payload, status, result_message, created_at, executed_at
		FROM commands
		WHERE device_id = $1 AND id > $2 AND status = $3
		ORDER BY id ASC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, deviceID, sinceID, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commands []*Command
	for rows.Next() {
		var cmd Command
		err := rows.Scan(
			&cmd.ID,
			&cmd.DeviceID,
			&cmd.Type,
			&cmd.Payload,
			&cmd.Status,
			&cmd.ResultMessage,
			&cmd.CreatedAt,
			&cmd.ExecutedAt,
		)
		if err != nil {
			return nil, err
		}
		commands = append(commands, &cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return commands, nil
}

// UpdateStatus transitions the command scoped to (id, device_id).
func (r *PostgresRepository) UpdateStatus(ctx context.Context, deviceID string, commandID int64, status Status, resultMessage string, executedAt time.Time) (int64, error) {
	query := `
		UPDATE commands
		SET status = $3, result_message = $4, executed_at = $5
		WHERE id = $1 AND device_id = $2
	`

	result, err := r.pool.Exec(ctx, query, commandID, deviceID, status, resultMessage, executedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// DeleteTerminalBefore removes old executed/failed commands.
func (r *PostgresRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM commands
		WHERE status IN ($1, $2) AND executed_at < $3
	`

	result, err := r.pool.Exec(ctx, query, StatusExecuted, StatusFailed, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

package location

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL location repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Insert appends a sample.
func (r *PostgresRepository) Insert(ctx context.Context, sample *Sample) error {
	query := `
		INSERT INTO locations (device_id, lat, lng, accuracy, provider, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		sample.DeviceID,
		sample.Lat,
		sample.Lng,
		sample.Accuracy,
		sample.Provider,
		sample.RecordedAt,
	).Scan(&sample.ID)
}

// Latest returns the most recent sample for a device.
// The id column is the insertion-order tie-break for equal recorded_at.
func (r *PostgresRepository) Latest(ctx context.Context, deviceID string) (*Sample, error) {
	query := `
		SELECT id, device_id, lat, lng, accuracy, provider, recorded_at
		FROM locations
		WHERE device_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`

	var sample Sample
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&sample.ID,
		&sample.DeviceID,
		&sample.Lat,
		&sample.Lng,
		&sample.Accuracy,
		&sample.Provider,
		&sample.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSamples
		}
		return nil, err
	}

	return &sample, nil
}

// DeleteOlderThan removes samples recorded before the cutoff.
func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM locations WHERE recorded_at < $1`

	result, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

package registry

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

// NewPostgresRepository creates a new PostgreSQL device repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert creates or updates a device keyed by device_id.
// The ON CONFLICT branch deliberately leaves the token column untouched so
// re-registration can never re-key a device; RETURNING hands back whichever
// token is stored.
func (r *PostgresRepository) Upsert(ctx context.Context, device *Device) (string, bool, error) {
	query := `
		INSERT INTO devices (device_id, device_name, device_token, model, os_version, fcm_token, is_active, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
		ON CONFLICT (device_id) DO UPDATE SET
			device_name = EXCLUDED.device_name,
			model = EXCLUDED.model,
			os_version = EXCLUDED.os_version,
			fcm_token = EXCLUDED.fcm_token,
			last_seen = EXCLUDED.last_seen
		RETURNING device_token, (xmax = 0) AS inserted
	`

	var (
		token   string
		created bool
	)
	err := r.pool.QueryRow(ctx, query,
		device.DeviceID,
		device.Name,
		device.Token,
		device.Model,
		device.OSVersion,
		device.PushToken,
		device.CreatedAt,
	).Scan(&token, &created)
	if err != nil {
		return "", false, err
	}

	return token, created, nil
}

// Get retrieves a device by ID.
func (r *PostgresRepository) Get(ctx context.Context, deviceID string) (*Device, error) {
	query := `
		SELECT device_id, device_name, device_token, model, os_version, fcm_token, is_active, created_at, last_seen
		FROM devices
		WHERE device_id = $1
	`

	var device Device
	err := r.pool.QueryRow(ctx, query, deviceID).Scan(
		&device.DeviceID,
		&device.Name,
		&device.Token,
		&device.Model,
		&device.OSVersion,
		&device.PushToken,
		&device.Active,
		&device.CreatedAt,
		&device.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	return &device, nil
}

// Touch updates last_seen.
func (r *PostgresRepository) Touch(ctx context.Context, deviceID string, seenAt time.Time) error {
	query := `UPDATE devices SET last_seen = $2 WHERE device_id = $1`
	_, err := r.pool.Exec(ctx, query, deviceID, seenAt)
	return err
}

// Deactivate marks a device inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, deviceID string) error {
	query := `UPDATE devices SET is_active = FALSE WHERE device_id = $1`

	result, err := r.pool.Exec(ctx, query, deviceID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}

	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

package registry

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/eventlog"
)

// TokenBytes is the entropy of a device token. 16 bytes = 128 bits,
// hex-encoded to a 32 character string.
const TokenBytes = 16

// ServiceConfig holds dependencies for the registry service.
type ServiceConfig struct {
	Repo   Repository
	Events *eventlog.Service
	Logger zerolog.Logger
}

// Service provides device registration, lookup, and credential checks.
type Service struct {
	repo   Repository
	events *eventlog.Service
	logger zerolog.Logger
}

// NewService creates a new registry service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repo,
		events: cfg.Events,
		logger: cfg.Logger,
	}
}

// Register registers a device or refreshes an existing registration.
// The returned token is always the stored one: a device that registers
// twice keeps the credential it was issued the first time. The boolean
// reports whether a new registration was created.
func (s *Service) Register(ctx context.Context, input *models.RegisterDeviceRequest) (string, bool, error) {
	var errs []models.FieldError
	if input.DeviceID == "" {
		errs = append(errs, models.FieldError{Field: "device_id", Message: "is required"})
	}
	if input.DeviceName == "" {
		errs = append(errs, models.FieldError{Field: "device_name", Message: "is required"})
	}
	if len(errs) > 0 {
		return "", false, &models.ValidationError{Errors: errs}
	}

	candidate, err := generateToken()
	if err != nil {
		return "", false, err
	}

	now := time.Now()
	device := &Device{
		DeviceID:  input.DeviceID,
		Name:      input.DeviceName,
		Token:     candidate,
		Model:     input.Model,
		OSVersion: input.OSVersion,
		PushToken: input.FCMToken,
		Active:    true,
		CreatedAt: now,
		LastSeen:  now,
	}

	token, created, err := s.repo.Upsert(ctx, device)
	if err != nil {
		return "", false, err
	}

	if created && s.events != nil {
		s.events.Append(ctx, input.DeviceID, eventlog.EventRegister,
			fmt.Sprintf(`{"device_name":%q,"model":%q,"os_version":%q}`,
				input.DeviceName, input.Model, input.OSVersion))
	}

	return token, created, nil
}

// Touch updates a device's last_seen timestamp. Best-effort: failures are
// logged and never surfaced to the caller.
func (s *Service) Touch(ctx context.Context, deviceID string) {
	if err := s.repo.Touch(ctx, deviceID, time.Now()); err != nil {
		s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("failed to touch device")
	}
}

// Lookup retrieves a device by ID.
func (s *Service) Lookup(ctx context.Context, deviceID string) (*Device, error) {
	return s.repo.Get(ctx, deviceID)
}

// Deactivate marks a device inactive. Its history is kept, but every
// authenticated call fails from this point on.
func (s *Service) Deactivate(ctx context.Context, deviceID string) error {
	return s.repo.Deactivate(ctx, deviceID)
}

// Authenticate verifies a presented bearer credential for a device.
// It returns ErrUnauthorized for an unknown device, a deactivated device,
// or a token mismatch; callers must not proceed on error. The comparison
// is constant-time.
func (s *Service) Authenticate(ctx context.Context, deviceID, presentedToken string) error {
	device, err := s.repo.Get(ctx, deviceID)
	if err != nil {
		// Unknown devices map to the same error as bad tokens so the
		// gate does not leak which device IDs exist.
		if errors.Is(err, ErrDeviceNotFound) {
			return ErrUnauthorized
		}
		return err
	}

	if !device.Active {
		return ErrUnauthorized
	}

	if subtle.ConstantTimeCompare([]byte(device.Token), []byte(presentedToken)) != 1 {
		return ErrUnauthorized
	}

	return nil
}

// generateToken returns a new crypto-random device token.
func generateToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating device token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package location

import (
	"context"
	"time"

	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/registry"
)

// ServiceConfig holds dependencies for the location service.
type ServiceConfig struct {
	Repo     Repository
	Registry *registry.Service
}

// Service provides location recording and retrieval.
type Service struct {
	repo     Repository
	registry *registry.Service
}

// NewService creates a new location service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:     cfg.Repo,
		registry: cfg.Registry,
	}
}

// Record validates and appends a location sample for a device. A
// successful upload also refreshes the device's last_seen as a side
// effect. The client-supplied epoch timestamp is translated to server
// wall-clock time; when absent the server time is used.
func (s *Service) Record(ctx context.Context, deviceID string, input *models.LocationUploadRequest) (*Sample, error) {
	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &models.ValidationError{Errors: fieldErrors}
	}

	accuracy := float64(AccuracyUnknown)
	if input.Accuracy != nil {
		accuracy = *input.Accuracy
	}

	provider := DefaultProvider
	if input.Provider != nil && *input.Provider != "" {
		provider = *input.Provider
	}

	recordedAt := time.Now()
	if input.Timestamp != nil {
		recordedAt = time.Unix(*input.Timestamp, 0)
	}

	sample := &Sample{
		DeviceID:   deviceID,
		Lat:        *input.Lat,
		Lng:        *input.Lng,
		Accuracy:   accuracy,
		Provider:   provider,
		RecordedAt: recordedAt,
	}

	if err := s.repo.Insert(ctx, sample); err != nil {
		return nil, err
	}

	if s.registry != nil {
		s.registry.Touch(ctx, deviceID)
	}

	return sample, nil
}

// Latest returns the most recent sample for a device, or ErrNoSamples.
func (s *Service) Latest(ctx context.Context, deviceID string) (*Sample, error) {
	return s.repo.Latest(ctx, deviceID)
}

// validateInput checks presence and coordinate bounds.
func validateInput(input *models.LocationUploadRequest) []models.FieldError {
	var errs []models.FieldError

	switch {
	case input.Lat == nil:
		errs = append(errs, models.FieldError{Field: "lat", Message: "is required"})
	case *input.Lat < -90 || *input.Lat > 90:
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90"})
	}

	switch {
	case input.Lng == nil:
		errs = append(errs, models.FieldError{Field: "lng", Message: "is required"})
	case *input.Lng < -180 || *input.Lng > 180:
		errs = append(errs, models.FieldError{Field: "lng", Message: "must be between -180 and 180"})
	}

	return errs
}

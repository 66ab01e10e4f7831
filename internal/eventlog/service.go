package eventlog

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Service provides fire-and-forget event logging. A failed append must
// never abort the operation that triggered it, so Append returns nothing:
// failures are logged server-side and swallowed.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new event log service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Append records an event for a device, best-effort.
func (s *Service) Append(ctx context.Context, deviceID, eventType, message string) {
	event := &Event{
		DeviceID:  deviceID,
		EventType: eventType,
		Message:   message,
		EventAt:   time.Now(),
	}

	if err := s.repo.Insert(ctx, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("device_id", deviceID).
			Str("event_type", eventType).
			Msg("failed to append event")
	}
}

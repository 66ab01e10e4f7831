package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/eventlog"
	"github.com/fleetlock/fleetlock/internal/push"
	"github.com/fleetlock/fleetlock/internal/registry"
)

// DefaultPollLimit is the page size when the caller does not ask for one.
const DefaultPollLimit = 10

// MaxPollLimit caps the poll page size.
const MaxPollLimit = 100

// ServiceConfig holds dependencies for the command service.
type ServiceConfig struct {
	Repo     Repository
	Registry *registry.Service
	Events   *eventlog.Service
	Notifier push.Notifier
	Logger   zerolog.Logger
}

// Service provides command enqueueing, polling, and acknowledgment.
type Service struct {
	repo     Repository
	registry *registry.Service
	events   *eventlog.Service
	notifier push.Notifier
	logger   zerolog.Logger
}

// NewService creates a new command service.
func NewService(cfg ServiceConfig) *Service {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = push.NopNotifier{}
	}

	return &Service{
		repo:     cfg.Repo,
		registry: cfg.Registry,
		events:   cfg.Events,
		notifier: notifier,
		logger:   cfg.Logger,
	}
}

// Enqueue stores a new pending command for a device and returns its
// assigned ID. The target device must exist. When the device has a push
// token, a best-effort wake-up hint is sent so the device polls sooner;
// delivery itself still happens only through polling.
func (s *Service) Enqueue(ctx context.Context, deviceID string, input *models.CommandCreateRequest) (int64, error) {
	if !ValidType(Type(input.Type)) {
		return 0, &models.ValidationError{Errors: []models.FieldError{
			{Field: "type", Message: "must be one of LOCK, ALARM, GET_LOCATION, SHOW_MESSAGE, WIPE"},
		}}
	}

	device, err := s.registry.Lookup(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	payload := input.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	cmd := &Command{
		DeviceID:  deviceID,
		Type:      Type(input.Type),
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, cmd); err != nil {
		return 0, err
	}

	if s.events != nil {
		s.events.Append(ctx, deviceID, eventlog.EventCommandCreated,
			fmt.Sprintf(`{"command_id":%d,"type":%q}`, cmd.ID, cmd.Type))
	}

	if device.PushToken != nil && *device.PushToken != "" {
		if err := s.notifier.Notify(ctx, *device.PushToken, string(cmd.Type)); err != nil {
			s.logger.Warn().
				Err(err).
				Str("device_id", deviceID).
				Int64("command_id", cmd.ID).
				Msg("push wakeup failed")
		}
	}

	return cmd.ID, nil
}

// Poll returns up to limit pending commands for a device with id greater
// than sinceID, ascending by id. The caller advances sinceID to the
// highest id it has seen; redelivery after a client crash is expected.
func (s *Service) Poll(ctx context.Context, deviceID string, sinceID int64, limit int) ([]models.Command, error) {
	if limit <= 0 {
		limit = DefaultPollLimit
	}
	if limit > MaxPollLimit {
		limit = MaxPollLimit
	}

	commands, err := s.repo.ListPending(ctx, deviceID, sinceID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]models.Command, 0, len(commands))
	for _, cmd := range commands {
		items = append(items, models.Command{
			ID:        cmd.ID,
			Type:      string(cmd.Type),
			Payload:   cmd.Payload,
			CreatedAt: models.Timestamp(cmd.CreatedAt),
		})
	}

	return items, nil
}

// Acknowledge transitions a command out of pending on behalf of its
// owning device. The update is scoped to (command_id, device_id): a
// device can never acknowledge another device's command, and a miss is a
// silent no-op so command existence never leaks across devices.
func (s *Service) Acknowledge(ctx context.Context, deviceID string, commandID int64, input *models.CommandAckRequest) error {
	status := StatusExecuted
	if input.Status != nil {
		status = Status(*input.Status)
	}
	if !ValidAckStatus(status) {
		return &models.ValidationError{Errors: []models.FieldError{
			{Field: "status", Message: "must be one of acknowledged, executed, failed"},
		}}
	}

	var message string
	if input.Message != nil {
		message = *input.Message
	}

	executedAt := time.Now()
	if input.ExecutedAt != nil {
		executedAt = time.Unix(*input.ExecutedAt, 0)
	}

	affected, err := s.repo.UpdateStatus(ctx, deviceID, commandID, status, message, executedAt)
	if err != nil {
		return err
	}

	if affected > 0 && s.events != nil {
		s.events.Append(ctx, deviceID, eventlog.EventCommandAck,
			fmt.Sprintf(`{"command_id":%d,"status":%q}`, commandID, status))
	}

	return nil
}

package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/middleware"
	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/api/response"
	"github.com/fleetlock/fleetlock/internal/command"
)

// CommandHandler handles command queue endpoints.
type CommandHandler struct {
	commands *command.Service
	logger   zerolog.Logger
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(commands *command.Service, logger zerolog.Logger) *CommandHandler {
	return &CommandHandler{
		commands: commands,
		logger:   logger,
	}
}

// Create handles POST /api/devices/{deviceId}/commands - operator
// enqueues a command for a device.
func (h *CommandHandler) Create(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	var input models.CommandCreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body")
		return
	}

	commandID, err := h.commands.Enqueue(r.Context(), deviceID, &input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info().
		Str("operator_id", middleware.GetOperatorID(r.Context())).
		Str("device_id", deviceID).
		Int64("command_id", commandID).
		Str("type", input.Type).
		Msg("command enqueued")

	response.OKWithStatus(w, r, http.StatusCreated, struct {
		CommandID int64 `json:"command_id"`
	}{
		CommandID: commandID,
	})
}

// Poll handles GET /api/devices/{deviceId}/commands/poll - device
// fetches pending commands past its since_id watermark.
func (h *CommandHandler) Poll(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	var sinceID int64
	if raw := r.URL.Query().Get("since_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			response.BadRequest(w, r, "since_id must be a non-negative integer")
			return
		}
		sinceID = parsed
	}

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	items, err := h.commands.Poll(r.Context(), deviceID, sinceID, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.Data(w, r, items)
}

// Ack handles POST /api/devices/{deviceId}/commands/{commandId}/ack -
// device reports the outcome of a command. An empty body acknowledges
// as executed.
func (h *CommandHandler) Ack(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	commandID, err := strconv.ParseInt(chi.URLParam(r, "commandId"), 10, 64)
	if err != nil || commandID <= 0 {
		response.BadRequest(w, r, "commandId must be a positive integer")
		return
	}

	var input models.CommandAckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, r, "invalid JSON body")
		return
	}

	if err := h.commands.Acknowledge(r.Context(), deviceID, commandID, &input); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.OK(w, r, nil)
}

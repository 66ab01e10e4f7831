// Package handler provides HTTP handlers for the FleetLock API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/middleware"
	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/api/response"
	"github.com/fleetlock/fleetlock/internal/eventlog"
	"github.com/fleetlock/fleetlock/internal/location"
	"github.com/fleetlock/fleetlock/internal/registry"
)

// simChangeProvider marks location samples that arrived inside a SIM
// change report rather than a regular upload.
const simChangeProvider = "sim_change"

// maxBodyBytes caps request bodies. SIM change reports are kept
// verbatim in the event log, so the cap also bounds log entry size.
const maxBodyBytes = 64 * 1024

// DeviceHandler handles device lifecycle endpoints.
type DeviceHandler struct {
	registry  *registry.Service
	locations *location.Service
	events    *eventlog.Service
	logger    zerolog.Logger
}

// NewDeviceHandler creates a new DeviceHandler.
func NewDeviceHandler(reg *registry.Service, loc *location.Service, events *eventlog.Service, logger zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		registry:  reg,
		locations: loc,
		events:    events,
		logger:    logger,
	}
}

// Register handles POST /api/register_device - register or refresh a device.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input models.RegisterDeviceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body")
		return
	}

	token, created, err := h.registry.Register(r.Context(), &input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	response.OKWithStatus(w, r, status, struct {
		DeviceID    string `json:"device_id"`
		DeviceToken string `json:"device_token"`
		Created     bool   `json:"created"`
	}{
		DeviceID:    input.DeviceID,
		DeviceToken: token,
		Created:     created,
	})
}

// Status handles GET /api/devices/{deviceId}/status - device metadata
// plus its most recent location, if any.
func (h *DeviceHandler) Status(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	device, err := h.registry.Lookup(r.Context(), deviceID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	status := models.DeviceStatus{
		DeviceName: device.Name,
		Model:      device.Model,
		OSVersion:  device.OSVersion,
		IsActive:   device.Active,
		LastSeen:   models.Timestamp(device.LastSeen),
	}

	sample, err := h.locations.Latest(r.Context(), deviceID)
	switch {
	case errors.Is(err, location.ErrNoSamples):
		// A device that has never uploaded reports a null last_location.
	case err != nil:
		writeServiceError(w, r, h.logger, err)
		return
	default:
		status.LastLocation = &models.Location{
			Lat:        sample.Lat,
			Lng:        sample.Lng,
			Accuracy:   sample.Accuracy,
			Provider:   sample.Provider,
			RecordedAt: models.Timestamp(sample.RecordedAt),
		}
	}

	response.OK(w, r, status)
}

// SimChange handles POST /api/devices/{deviceId}/sim_change - a device
// reporting that its SIM card was replaced. The raw report is kept
// verbatim in the event log for the audit trail; an embedded location,
// when present, also becomes a regular location sample.
func (h *DeviceHandler) SimChange(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(w, r, "failed to read request body")
		return
	}

	var input models.SimChangeRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			response.BadRequest(w, r, "invalid JSON body")
			return
		}
	}

	h.events.Append(r.Context(), deviceID, eventlog.EventSimChange, string(body))

	if input.Location != nil {
		upload := models.LocationUploadRequest{
			Lat:      &input.Location.Lat,
			Lng:      &input.Location.Lng,
			Accuracy: input.Location.Accuracy,
			Provider: strPtr(simChangeProvider),
		}
		if _, err := h.locations.Record(r.Context(), deviceID, &upload); err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
	} else {
		h.registry.Touch(r.Context(), deviceID)
	}

	response.OK(w, r, nil)
}

// Deactivate handles POST /api/devices/{deviceId}/deactivate - operator
// action that retires a device. History is kept; further device calls 401.
func (h *DeviceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceId")

	if err := h.registry.Deactivate(r.Context(), deviceID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.OK(w, r, nil)
}

func strPtr(s string) *string {
	return &s
}

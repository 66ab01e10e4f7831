package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/middleware"
	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/api/response"
	"github.com/fleetlock/fleetlock/internal/location"
)

// LocationHandler handles location upload endpoints.
type LocationHandler struct {
	locations *location.Service
	logger    zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(loc *location.Service, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{
		locations: loc,
		logger:    logger,
	}
}

// Upload handles POST /api/devices/{deviceId}/location - append a
// location sample.
func (h *LocationHandler) Upload(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())

	var input models.LocationUploadRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body")
		return
	}

	if _, err := h.locations.Record(r.Context(), deviceID, &input); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response.OK(w, r, nil)
}

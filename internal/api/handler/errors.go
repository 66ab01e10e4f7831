package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/api/response"
	"github.com/fleetlock/fleetlock/internal/registry"
)

// writeServiceError maps service errors onto the wire. Validation
// failures and known sentinels get precise statuses; everything else is
// logged and returned as a generic 500 so internals never leak.
func writeServiceError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		response.BadRequest(w, r, ve.Error())
	case errors.Is(err, registry.ErrDeviceNotFound):
		response.NotFound(w, r, "device not found")
	case errors.Is(err, registry.ErrUnauthorized):
		response.Unauthorized(w, r, "invalid device credentials")
	default:
		log.Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "internal server error")
	}
}

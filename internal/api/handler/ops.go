package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/fleetlock/fleetlock/internal/api/models"
	"github.com/fleetlock/fleetlock/internal/api/response"
)

// Pinger checks connectivity to a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
}

// NewOpsHandler creates a new OpsHandler. db may be nil when running
// without a database (tests, in-memory mode).
func NewOpsHandler(version, buildTime string, db Pinger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
	}
}

// HealthCheck handles GET /api/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, r, struct {
		Version   string           `json:"version"`
		BuildTime string           `json:"build_time"`
		Time      models.Timestamp `json:"time"`
	}{
		Version:   h.version,
		BuildTime: h.buildTime,
		Time:      models.Timestamp(time.Now()),
	})
}

// ReadinessCheck handles GET /api/ready - readiness check. Fails when
// the database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			response.ServiceUnavailable(w, r, "database unreachable")
			return
		}
	}

	response.OK(w, r, struct {
		Time models.Timestamp `json:"time"`
	}{
		Time: models.Timestamp(time.Now()),
	})
}

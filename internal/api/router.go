// Package api provides the HTTP API for FleetLock.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api/handler"
	"github.com/fleetlock/fleetlock/internal/api/middleware"
	"github.com/fleetlock/fleetlock/internal/api/response"
	"github.com/fleetlock/fleetlock/internal/command"
	"github.com/fleetlock/fleetlock/internal/eventlog"
	"github.com/fleetlock/fleetlock/internal/location"
	"github.com/fleetlock/fleetlock/internal/operator"
	"github.com/fleetlock/fleetlock/internal/registry"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version         string
	BuildTime       string
	Logger          zerolog.Logger
	ServiceName     string
	Metrics         *middleware.Metrics
	DB              handler.Pinger
	RegistryService *registry.Service
	LocationService *location.Service
	CommandService  *command.Service
	EventService    *eventlog.Service
	OperatorTokens  *operator.TokenService
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "fleetlock-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type
	r.Use(middleware.RequireJSON)          // Reject non-JSON bodies

	// Unknown routes and wrong methods answer in the same envelope as
	// everything else.
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	deviceHandler := handler.NewDeviceHandler(cfg.RegistryService, cfg.LocationService, cfg.EventService, cfg.Logger)
	locationHandler := handler.NewLocationHandler(cfg.LocationService, cfg.Logger)
	commandHandler := handler.NewCommandHandler(cfg.CommandService, cfg.Logger)

	// Create auth middleware
	deviceAuth := middleware.DeviceAuth(cfg.RegistryService)
	operatorAuth := middleware.OperatorAuth(cfg.OperatorTokens)

	// Create rate limit middleware for different endpoint categories
	registrationRateLimit := middleware.RateLimitByIP(middleware.RegistrationRateLimit) // 30 req/min per IP
	deviceRateLimit := middleware.RateLimitByDevice(middleware.DeviceRateLimit)         // 120 req/min per device
	operatorRateLimit := middleware.RateLimitByIP(middleware.OperatorRateLimit)         // 60 req/min per IP

	r.Route("/api", func(r chi.Router) {
		// Ops endpoints (public)
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/ready", opsHandler.ReadinessCheck)

		// Registration (public) - strict rate limiting
		r.With(registrationRateLimit).Post("/register_device", deviceHandler.Register)

		r.Route("/devices/{deviceId}", func(r chi.Router) {
			// Device endpoints (device token authenticated)
			r.Group(func(r chi.Router) {
				r.Use(deviceRateLimit)
				r.Use(deviceAuth)
				r.Post("/location", locationHandler.Upload)
				r.Post("/sim_change", deviceHandler.SimChange)
				r.Get("/status", deviceHandler.Status)
				r.Get("/commands/poll", commandHandler.Poll)
				r.Post("/commands/{commandId}/ack", commandHandler.Ack)
			})

			// Operator endpoints (operator JWT authenticated)
			r.Group(func(r chi.Router) {
				r.Use(operatorRateLimit)
				r.Use(operatorAuth)
				r.Post("/commands", commandHandler.Create)
				r.Post("/deactivate", deviceHandler.Deactivate)
			})
		})
	})

	return r
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	response.NotFound(w, r, "not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	response.MethodNotAllowed(w, r)
}

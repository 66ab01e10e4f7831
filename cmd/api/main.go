// Package main provides the entrypoint for the FleetLock API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/api"
	"github.com/fleetlock/fleetlock/internal/api/middleware"
	"github.com/fleetlock/fleetlock/internal/command"
	"github.com/fleetlock/fleetlock/internal/database"
	"github.com/fleetlock/fleetlock/internal/eventlog"
	"github.com/fleetlock/fleetlock/internal/location"
	"github.com/fleetlock/fleetlock/internal/operator"
	"github.com/fleetlock/fleetlock/internal/push"
	"github.com/fleetlock/fleetlock/internal/registry"
	"github.com/fleetlock/fleetlock/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fleetlock-api"

	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FleetLock API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Initialize event log service
	eventRepo := eventlog.NewPostgresRepository(pool)
	eventService := eventlog.NewService(eventRepo, log)

	// Initialize device registry service
	registryRepo := registry.NewPostgresRepository(pool)
	registryService := registry.NewService(registry.ServiceConfig{
		Repo:   registryRepo,
		Events: eventService,
		Logger: log,
	})
	log.Info().Msg("registry service initialized")

	// Initialize location service
	locationRepo := location.NewPostgresRepository(pool)
	locationService := location.NewService(location.ServiceConfig{
		Repo:     locationRepo,
		Registry: registryService,
	})
	log.Info().Msg("location service initialized")

	// Initialize push notifier (optional, nop when no gateway configured)
	var notifier push.Notifier = push.NopNotifier{}
	if gatewayURL := os.Getenv("PUSH_GATEWAY_URL"); gatewayURL != "" {
		notifier = push.NewHTTPNotifier(push.Config{GatewayURL: gatewayURL})
		log.Info().Str("gateway_url", gatewayURL).Msg("push notifier initialized")
	} else {
		log.Warn().Msg("push gateway not configured - devices rely on polling alone")
	}

	// Initialize command service
	commandRepo := command.NewPostgresRepository(pool)
	commandService := command.NewService(command.ServiceConfig{
		Repo:     commandRepo,
		Registry: registryService,
		Events:   eventService,
		Notifier: notifier,
		Logger:   log,
	})
	log.Info().Msg("command service initialized")

	// Initialize operator token service (signing key from environment)
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	operatorTokens := operator.NewTokenService(operator.TokenConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})
	log.Info().Msg("operator token service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		DB:              pool,
		RegistryService: registryService,
		LocationService: locationService,
		CommandService:  commandService,
		EventService:    eventService,
		OperatorTokens:  operatorTokens,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// Package main provides the entrypoint for the FleetLock retention sweeper.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fleetlock/fleetlock/internal/command"
	"github.com/fleetlock/fleetlock/internal/database"
	"github.com/fleetlock/fleetlock/internal/eventlog"
	"github.com/fleetlock/fleetlock/internal/location"
	"github.com/fleetlock/fleetlock/internal/sweeper"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "fleetlock-sweeper"

	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FleetLock retention sweeper")

	// Sweeper also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Build the sweep job over the three retention domains
	job := sweeper.NewJob(sweeper.JobConfig{
		Config:    sweepConfigFromEnv(),
		Locations: location.NewPostgresRepository(pool),
		Commands:  command.NewPostgresRepository(pool),
		Events:    eventlog.NewPostgresRepository(pool),
		Logger:    log,
	})

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	// When a Pub/Sub subscription is configured, sweeps are driven by an
	// external scheduler. Otherwise the local ticker loop runs.
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")

	if projectID != "" && subscription != "" {
		handler, err := sweeper.NewPubSubHandler(ctx, sweeper.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Job:              job,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Fatal().Err(err).Msg("pubsub handler stopped")
			}
		}()
	} else {
		go job.Run(ctx)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down sweeper")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("sweeper stopped")
}

// sweepConfigFromEnv reads retention overrides from the environment,
// falling back to the defaults for anything unset or unparseable.
func sweepConfigFromEnv() sweeper.Config {
	cfg := sweeper.DefaultConfig()

	if v, err := time.ParseDuration(os.Getenv("LOCATION_RETENTION")); err == nil && v > 0 {
		cfg.LocationRetention = v
	}
	if v, err := time.ParseDuration(os.Getenv("COMMAND_RETENTION")); err == nil && v > 0 {
		cfg.CommandRetention = v
	}
	if v, err := time.ParseDuration(os.Getenv("EVENT_RETENTION")); err == nil && v > 0 {
		cfg.EventRetention = v
	}
	if v, err := time.ParseDuration(os.Getenv("SWEEP_INTERVAL")); err == nil && v > 0 {
		cfg.Interval = v
	}

	return cfg
}

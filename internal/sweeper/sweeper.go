// Package sweeper implements the retention job that prunes old
// locations, terminal commands, and event log entries.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Default retention windows.
const (
	DefaultLocationRetention = 30 * 24 * time.Hour
	DefaultCommandRetention  = 7 * 24 * time.Hour
	DefaultEventRetention    = 30 * 24 * time.Hour
	DefaultInterval          = 1 * time.Hour
)

// LocationPruner deletes location samples older than a cutoff.
type LocationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CommandPruner deletes executed/failed commands completed before a cutoff.
// Pending commands are never touched, regardless of age.
type CommandPruner interface {
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPruner deletes event log entries older than a cutoff.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds retention windows and scheduling for the sweeper.
type Config struct {
	// LocationRetention is how long location samples are kept.
	LocationRetention time.Duration

	// CommandRetention is how long executed/failed commands are kept
	// after their execution time.
	CommandRetention time.Duration

	// EventRetention is how long event log entries are kept.
	EventRetention time.Duration

	// Interval is how often Run sweeps. Zero means DefaultInterval.
	Interval time.Duration
}

// DefaultConfig returns the standard retention windows.
func DefaultConfig() Config {
	return Config{
		LocationRetention: DefaultLocationRetention,
		CommandRetention:  DefaultCommandRetention,
		EventRetention:    DefaultEventRetention,
		Interval:          DefaultInterval,
	}
}

// Metrics tracks sweep statistics.
type Metrics struct {
	mu sync.RWMutex

	TotalSweeps       int64
	FailedSweeps      int64
	LocationsDeleted  int64
	CommandsDeleted   int64
	EventsDeleted     int64
	LastSweepAt       time.Time
	LastSweepDuration time.Duration
}

// JobConfig holds dependencies for creating a Job.
type JobConfig struct {
	Config    Config
	Locations LocationPruner
	Commands  CommandPruner
	Events    EventPruner
	Logger    zerolog.Logger
}

// Job prunes expired data on demand or on a schedule.
type Job struct {
	config    Config
	locations LocationPruner
	commands  CommandPruner
	events    EventPruner
	logger    zerolog.Logger
	metrics   *Metrics
}

// NewJob creates a new retention sweep job.
func NewJob(cfg JobConfig) *Job {
	config := cfg.Config
	if config.LocationRetention <= 0 {
		config.LocationRetention = DefaultLocationRetention
	}
	if config.CommandRetention <= 0 {
		config.CommandRetention = DefaultCommandRetention
	}
	if config.EventRetention <= 0 {
		config.EventRetention = DefaultEventRetention
	}
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}

	return &Job{
		config:    config,
		locations: cfg.Locations,
		commands:  cfg.Commands,
		events:    cfg.Events,
		logger:    cfg.Logger,
		metrics:   &Metrics{},
	}
}

// Result contains the outcome of a single sweep.
type Result struct {
	StartTime        time.Time
	Duration         time.Duration
	LocationsDeleted int64
	CommandsDeleted  int64
	EventsDeleted    int64
	Errors           []error
}

// Sweep prunes all expired data once. Each category is pruned
// independently: a failure in one does not skip the others, and a
// repeat sweep over the same data deletes nothing further.
func (j *Job) Sweep(ctx context.Context) *Result {
	now := time.Now()
	result := &Result{StartTime: now}

	if j.locations != nil {
		cutoff := now.Add(-j.config.LocationRetention)
		n, err := j.locations.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Error().Err(err).Msg("failed to prune locations")
			result.Errors = append(result.Errors, err)
		} else {
			result.LocationsDeleted = n
		}
	}

	if j.commands != nil {
		cutoff := now.Add(-j.config.CommandRetention)
		n, err := j.commands.DeleteTerminalBefore(ctx, cutoff)
		if err != nil {
			j.logger.Error().Err(err).Msg("failed to prune commands")
			result.Errors = append(result.Errors, err)
		} else {
			result.CommandsDeleted = n
		}
	}

	if j.events != nil {
		cutoff := now.Add(-j.config.EventRetention)
		n, err := j.events.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Error().Err(err).Msg("failed to prune events")
			result.Errors = append(result.Errors, err)
		} else {
			result.EventsDeleted = n
		}
	}

	result.Duration = time.Since(now)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int64("locations_deleted", result.LocationsDeleted).
		Int64("commands_deleted", result.CommandsDeleted).
		Int64("events_deleted", result.EventsDeleted).
		Int("errors", len(result.Errors)).
		Msg("retention sweep completed")

	return result
}

// Run sweeps immediately and then on every tick until the context is
// canceled. A failed sweep is retried with exponential backoff before
// waiting for the next tick.
func (j *Job) Run(ctx context.Context) {
	j.logger.Info().
		Dur("interval", j.config.Interval).
		Dur("location_retention", j.config.LocationRetention).
		Dur("command_retention", j.config.CommandRetention).
		Dur("event_retention", j.config.EventRetention).
		Msg("starting retention sweeper")

	j.sweepWithRetry(ctx)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("retention sweeper stopped")
			return
		case <-ticker.C:
			j.sweepWithRetry(ctx)
		}
	}
}

func (j *Job) sweepWithRetry(ctx context.Context) {
	operation := func() error {
		result := j.Sweep(ctx)
		if len(result.Errors) > 0 {
			return result.Errors[0]
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		j.logger.Error().Err(err).Msg("retention sweep failed after retries")
	}
}

func (j *Job) updateMetrics(result *Result) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	if len(result.Errors) > 0 {
		j.metrics.FailedSweeps++
	}
	j.metrics.LocationsDeleted += result.LocationsDeleted
	j.metrics.CommandsDeleted += result.CommandsDeleted
	j.metrics.EventsDeleted += result.EventsDeleted
	j.metrics.LastSweepAt = result.StartTime
	j.metrics.LastSweepDuration = result.Duration
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *Job) MetricsSnapshot() map[string]interface{} {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return map[string]interface{}{
		"total_sweeps":        j.metrics.TotalSweeps,
		"failed_sweeps":       j.metrics.FailedSweeps,
		"locations_deleted":   j.metrics.LocationsDeleted,
		"commands_deleted":    j.metrics.CommandsDeleted,
		"events_deleted":      j.metrics.EventsDeleted,
		"last_sweep_at":       j.metrics.LastSweepAt,
		"last_sweep_duration": j.metrics.LastSweepDuration.String(),
	}
}

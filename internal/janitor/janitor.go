// Package janitor fails runs abandoned in RUNNING state and purges old run
// history.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"

	"github.com/tsanders-rh/lactl/internal/provision"
	"github.com/tsanders-rh/lactl/internal/store"
	lerrors "github.com/tsanders-rh/lactl/pkg/errors"
	"github.com/tsanders-rh/lactl/pkg/types"
)

// RunStore is the slice of run history the janitor maintains
type RunStore interface {
	ListStale(ctx context.Context, startedBefore time.Time) ([]*types.Run, error)
	MarkFailed(ctx context.Context, id string, endedAt time.Time, errorCode, errorMessage string) error
	DeleteEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config holds janitor configuration
type Config struct {
	CheckInterval time.Duration
	// StaleRunThreshold must not be shorter than provision.MaxWaitLimit,
	// or live runs would be failed.
	StaleRunThreshold time.Duration
	// Retention of zero keeps history forever
	Retention time.Duration
}

// DefaultConfig returns default janitor configuration
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:     5 * time.Minute,
		StaleRunThreshold: provision.MaxWaitLimit,
		Retention:         90 * 24 * time.Hour,
	}
}

// Result counts what one pass changed
type Result struct {
	Reaped int
	Purged int64
}

// Janitor performs periodic run history maintenance
type Janitor struct {
	config *Config
	runs   RunStore
	clock  quartz.Clock
	log    slog.Logger
}

// NewJanitor creates a new janitor instance
func NewJanitor(config *Config, runs RunStore, clock quartz.Clock, log slog.Logger) *Janitor {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	return &Janitor{
		config: config,
		runs:   runs,
		clock:  clock,
		log:    log.Named("janitor"),
	}
}

// Start runs a pass immediately and then every CheckInterval until ctx is
// done
func (j *Janitor) Start(ctx context.Context) error {
	j.log.Info(ctx, "janitor starting", slog.F("check_interval", j.config.CheckInterval))

	j.pass(ctx)

	ticker := j.clock.NewTicker(j.config.CheckInterval, "janitor")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info(ctx, "janitor shutting down")
			return ctx.Err()
		case <-ticker.C:
			j.pass(ctx)
		}
	}
}

func (j *Janitor) pass(ctx context.Context) {
	result, err := j.RunOnce(ctx)
	if err != nil {
		j.log.Warn(ctx, "janitor pass failed", slog.Error(err))
		return
	}
	if result.Reaped > 0 || result.Purged > 0 {
		j.log.Info(ctx, "janitor pass completed",
			slog.F("reaped", result.Reaped),
			slog.F("purged", result.Purged))
	}
}

// RunOnce fails stale runs and purges expired history. A run that cannot
// be failed is logged and skipped.
func (j *Janitor) RunOnce(ctx context.Context) (Result, error) {
	var result Result
	now := j.clock.Now()

	stale, err := j.runs.ListStale(ctx, now.Add(-j.config.StaleRunThreshold))
	if err != nil {
		return result, fmt.Errorf("list stale runs: %w", err)
	}

	msg := fmt.Sprintf("run abandoned: no result recorded within %s", j.config.StaleRunThreshold)
	for _, run := range stale {
		err := j.runs.MarkFailed(ctx, run.ID, now, string(lerrors.ErrCodeInternal), msg)
		if errors.Is(err, store.ErrRunFinished) {
			j.log.Debug(ctx, "stale run finished before it was reaped", slog.F("run_id", run.ID))
			continue
		}
		if err != nil {
			j.log.Warn(ctx, "failed to mark stale run as failed",
				slog.F("run_id", run.ID),
				slog.Error(err))
			continue
		}
		j.log.Info(ctx, "marked stale run as failed",
			slog.F("run_id", run.ID),
			slog.F("run_type", run.RunType),
			slog.F("started_at", run.StartedAt))
		result.Reaped++
	}
	runsReaped.Add(float64(result.Reaped))

	if j.config.Retention > 0 {
		purged, err := j.runs.DeleteEndedBefore(ctx, now.Add(-j.config.Retention))
		if err != nil {
			return result, fmt.Errorf("purge run history: %w", err)
		}
		result.Purged = purged
		runsPurged.Add(float64(purged))
	}

	return result, nil
}

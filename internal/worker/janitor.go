// Package worker provides background jobs for the planner service.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSweepInterval is the period between idle-session sweeps.
const DefaultSweepInterval = time.Minute

// Sweeper removes idle sessions and reports how many it removed.
type Sweeper interface {
	SweepIdle(ctx context.Context) (int, error)
}

// JanitorConfig holds configuration for creating a Janitor.
type JanitorConfig struct {
	Sweeper Sweeper
	Logger  zerolog.Logger

	// Interval between sweeps. Default: DefaultSweepInterval.
	Interval time.Duration
}

// JanitorMetrics tracks sweep statistics.
type JanitorMetrics struct {
	TotalSweeps     int64
	FailedSweeps    int64
	SessionsExpired int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime time.Time
	Duration  time.Duration
	Expired   int
	Err       error
}

// Janitor periodically expires idle planner sessions so that abandoned
// sessions are released even when no request arrives.
type Janitor struct {
	sweeper  Sweeper
	logger   zerolog.Logger
	interval time.Duration

	mu      sync.RWMutex
	metrics JanitorMetrics
}

// NewJanitor creates a new janitor.
func NewJanitor(cfg JanitorConfig) *Janitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	return &Janitor{
		sweeper:  cfg.Sweeper,
		logger:   cfg.Logger,
		interval: interval,
	}
}

// Run executes a single sweep.
func (j *Janitor) Run(ctx context.Context) *SweepResult {
	result := &SweepResult{StartTime: time.Now()}

	result.Expired, result.Err = j.sweeper.SweepIdle(ctx)
	result.Duration = time.Since(result.StartTime)

	j.updateMetrics(result)

	if result.Err != nil {
		j.logger.Error().Err(result.Err).Msg("idle session sweep failed")
		return result
	}
	if result.Expired > 0 {
		j.logger.Info().
			Int("expired", result.Expired).
			Dur("duration", result.Duration).
			Msg("idle sessions expired")
	}
	return result
}

// Start sweeps every interval until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info().Dur("interval", j.interval).Msg("session janitor started")

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("session janitor stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *Janitor) updateMetrics(result *SweepResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.metrics.TotalSweeps++
	if result.Err != nil {
		j.metrics.FailedSweeps++
	}
	j.metrics.SessionsExpired += int64(result.Expired)
	j.metrics.LastSweepAt = result.StartTime
	j.metrics.LastSweepDuration = result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *Janitor) GetMetrics() JanitorMetrics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.metrics
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *Janitor) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_sweeps":        m.TotalSweeps,
		"failed_sweeps":       m.FailedSweeps,
		"sessions_expired":    m.SessionsExpired,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
	}
}

package filestore

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CleanupResult describes one cleanup run.
type CleanupResult struct {
	Deleted  int
	Duration time.Duration
}

// SchedulerConfig controls the background cleanup loop.
type SchedulerConfig struct {
	Retention time.Duration
	Interval  time.Duration

	// OnCleanup is called after each run. Optional.
	OnCleanup func(result CleanupResult, err error)
}

// DefaultSchedulerConfig keeps files for 30 days and checks daily.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Retention: 30 * 24 * time.Hour,
		Interval:  24 * time.Hour,
	}
}

// StartCleanupScheduler runs Cleanup immediately and then every interval
// until ctx is cancelled. The returned channel is closed when the loop exits.
func (m *Manager) StartCleanupScheduler(ctx context.Context, config SchedulerConfig) <-chan struct{} {
	defaults := DefaultSchedulerConfig()
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.runCleanup(ctx, config)

		ticker := time.NewTicker(config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runCleanup(ctx, config)
			}
		}
	}()
	return done
}

func (m *Manager) runCleanup(ctx context.Context, config SchedulerConfig) {
	start := time.Now()
	n, err := m.Cleanup(ctx, config.Retention)
	result := CleanupResult{Deleted: n, Duration: time.Since(start)}

	if err != nil {
		m.logger.Error("File cleanup failed", zap.Error(err))
	} else if n > 0 {
		m.logger.Info("Removed expired files",
			zap.Int("deleted", n),
			zap.Duration("duration", result.Duration))
	}
	if config.OnCleanup != nil {
		config.OnCleanup(result, err)
	}
}

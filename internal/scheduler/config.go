package scheduler

import (
	"time"

	"github.com/nivala/pricing/internal/config"
)

// Config controls the analysis cycle cadence and retention windows.
type Config struct {
	// RunInterval is the tick between automatic cycles.
	RunInterval time.Duration
	// WindowDays is the usage lookback handed to the aggregator.
	WindowDays int
	// RetentionDays is how long a pending recommendation stays decidable
	// before the sweep expires it.
	RetentionDays int
	// JobTimeout bounds each job within a cycle.
	JobTimeout time.Duration
	// LockTTL covers the cross-replica cycle lock; it should exceed the
	// longest expected cycle.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:   24 * time.Hour,
		WindowDays:    90,
		RetentionDays: 14,
		JobTimeout:    5 * time.Minute,
		LockTTL:       30 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	if cfg.AnalysisWindowDays > 0 {
		c.WindowDays = cfg.AnalysisWindowDays
	}
	if cfg.SchedulerInterval > 0 {
		c.RunInterval = cfg.SchedulerInterval
	}
	if cfg.RecommendationRetentionDays > 0 {
		c.RetentionDays = cfg.RecommendationRetentionDays
	}
	return c
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.WindowDays <= 0 {
		c.WindowDays = defaults.WindowDays
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = defaults.RetentionDays
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

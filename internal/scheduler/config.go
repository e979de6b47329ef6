package scheduler

import (
	"time"

	"github.com/smallbiznis/masstrack/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	JobTimeout  time.Duration
	// LockTTL bounds how long one replica may hold a job lock.
	LockTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		BatchSize:   100,
		JobTimeout:  2 * time.Minute,
		LockTTL:     5 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{RunInterval: cfg.Scheduler.Interval}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	if c.LockTTL < c.JobTimeout {
		c.LockTTL = c.JobTimeout
	}
	return c
}

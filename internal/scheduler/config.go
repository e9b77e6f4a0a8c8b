package scheduler

import (
	"time"

	"github.com/smallbiznis/quoteflow/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval      time.Duration
	BatchSize        int
	JobTimeout       time.Duration
	SessionRetention time.Duration
	EnabledJobs      []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:      10 * time.Minute,
		BatchSize:        500,
		JobTimeout:       30 * time.Second,
		SessionRetention: 7 * 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:      cfg.Scheduler.RunInterval,
		SessionRetention: cfg.Scheduler.SessionRetention,
	}
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
	if c.SessionRetention <= 0 {
		c.SessionRetention = defaults.SessionRetention
	}
	return c
}

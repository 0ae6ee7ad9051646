package sweep

import (
	"time"
)

// Config controls the trial sweep schedule and windows.
type Config struct {
	// RunInterval is the time between sweep runs.
	RunInterval time.Duration
	// Horizon bounds the trial-end lookahead window.
	Horizon time.Duration
	// DedupWindow suppresses repeat notifications per user inside it.
	DedupWindow time.Duration
	// JobTimeout bounds a single run.
	JobTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 24 * time.Hour,
		Horizon:     72 * time.Hour,
		DedupWindow: 24 * time.Hour,
		JobTimeout:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Horizon <= 0 {
		c.Horizon = defaults.Horizon
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = defaults.DedupWindow
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

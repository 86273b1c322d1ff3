package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the background job worker.
type Config struct {
	// Concurrency is the number of goroutines polling for jobs.
	Concurrency int

	// PollInterval is how often an idle goroutine checks for due jobs.
	PollInterval time.Duration

	// JobTimeout bounds a single job run.
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for running jobs.
	ShutdownTimeout time.Duration

	// StaleJobThreshold is how long a job may stay 'running' before Start
	// assumes its worker crashed and makes it pending again.
	StaleJobThreshold time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Concurrency:       1,
		PollInterval:      5 * time.Second,
		JobTimeout:        time.Minute,
		ShutdownTimeout:   30 * time.Second,
		StaleJobThreshold: 10 * time.Minute,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > 100 {
		return fmt.Errorf("concurrency must be between 1 and 100, got %d", c.Concurrency)
	}
	if c.PollInterval < 10*time.Millisecond {
		return fmt.Errorf("poll interval must be at least 10ms, got %v", c.PollInterval)
	}
	if c.JobTimeout < time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.StaleJobThreshold < time.Minute {
		return fmt.Errorf("stale job threshold must be at least 1 minute, got %v", c.StaleJobThreshold)
	}
	return nil
}

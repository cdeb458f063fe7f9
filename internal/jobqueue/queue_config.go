/*
Package jobqueue configuration - tunable parameters for the River queue.

Reminder jobs are lightweight (one webhook POST each), so the defaults
favor low concurrency and a short retry window: a reminder that cannot
be delivered within a few hours has lost its point.
*/
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers processing jobs.
	MaxWorkers int

	// MaxRetries is the maximum delivery attempts per reminder job.
	MaxRetries int

	// JobTimeout is the maximum time a single job can run.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 5,
		MaxRetries: 8,
		JobTimeout: 30 * time.Second,
	}
}

// DevelopmentQueueConfig returns a configuration that fails fast.
func DevelopmentQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 2
	config.MaxRetries = 2
	return config
}

// RiverQueueConfig converts our config to River's queue configuration format
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}

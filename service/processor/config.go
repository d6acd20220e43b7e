package processor

import (
	"fmt"
	"time"
)

// Config represents worker pool configuration
type Config struct {
	// WorkerCount is the number of workers landing planes
	WorkerCount int `json:"workerCount" yaml:"workerCount"`

	// Backoff is how long a worker waits before reporting a retry when no runway is free
	Backoff time.Duration `json:"backoff" yaml:"backoff"`

	// Occupancy is how long a landing holds its runway
	Occupancy time.Duration `json:"occupancy" yaml:"occupancy"`

	// QueueSize bounds tasks waiting for a worker; 0 means WorkerCount
	QueueSize int `json:"queueSize" yaml:"queueSize"`
}

// DefaultConfig returns the default worker pool configuration
func DefaultConfig() Config {
	return Config{
		WorkerCount: 5,
		Backoff:     2 * time.Second,
		Occupancy:   3 * time.Second,
		QueueSize:   10,
	}
}

// Validate checks config consistency
func (c Config) Validate() error {
	if c.WorkerCount <= 0 {
		return fmt.Errorf("invalid worker count: %d", c.WorkerCount)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("invalid backoff: %s", c.Backoff)
	}
	if c.Occupancy < 0 {
		return fmt.Errorf("invalid occupancy: %s", c.Occupancy)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid queue size: %d", c.QueueSize)
	}
	return nil
}

func (c Config) queueSize() int {
	if c.QueueSize == 0 {
		return c.WorkerCount
	}
	return c.QueueSize
}

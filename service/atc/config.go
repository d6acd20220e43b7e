package atc

import (
	"fmt"
	"time"
)

// Config controls the admission cycle
type Config struct {
	// DrainInterval bounds how long one cycle collects arrivals before forwarding
	DrainInterval time.Duration `json:"drainInterval" yaml:"drainInterval"`
	// MaxBatch caps arrivals collected per cycle; keep it at or below the intake prefetch
	MaxBatch int `json:"maxBatch" yaml:"maxBatch"`
}

// DefaultConfig returns the default admission configuration
func DefaultConfig() Config {
	return Config{DrainInterval: 100 * time.Millisecond, MaxBatch: 10}
}

// Validate checks config consistency
func (c Config) Validate() error {
	if c.DrainInterval <= 0 {
		return fmt.Errorf("invalid drain interval: %s", c.DrainInterval)
	}
	if c.MaxBatch <= 0 {
		return fmt.Errorf("invalid max batch: %d", c.MaxBatch)
	}
	return nil
}

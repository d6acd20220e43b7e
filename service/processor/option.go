package processor

import "github.com/viant/runway/model"

// Option configures the worker pool
type Option func(*Service)

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithAllocator sets the runway pool the workers acquire from
func WithAllocator(allocator Allocator) Option {
	return func(s *Service) {
		s.allocator = allocator
	}
}

// WithOutcomes sets the channel outcomes are emitted on. When not set the
// service creates a buffered channel exposed by Outcomes.
func WithOutcomes(outcomes chan model.Outcome) Option {
	return func(s *Service) {
		s.outcomes = outcomes
	}
}

// WithListener registers callbacks invoked before each outcome is emitted
func WithListener(fns ...Listener) Option {
	return func(s *Service) {
		if len(fns) == 0 {
			return
		}
		s.listeners = append(s.listeners, fns...)
	}
}

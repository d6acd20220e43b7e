package stats

import (
	"context"
	"sync"

	"github.com/viant/runway/model"
)

// Memory is an in-process recorder with no expiration
type Memory struct {
	mu         sync.Mutex
	total      Counters
	byRunway   map[string]int64
	byPriority map[string]Counters
}

// NewMemory creates an in-memory recorder
func NewMemory() *Memory {
	return &Memory{
		byRunway:   make(map[string]int64),
		byPriority: make(map[string]Counters),
	}
}

// Record adds the outcome
func (s *Memory) Record(_ context.Context, outcome model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.add(outcome.Verdict)
	if outcome.Runway != "" {
		s.byRunway[outcome.Runway]++
	}
	if outcome.Priority != "" {
		c := s.byPriority[outcome.Priority]
		c.add(outcome.Verdict)
		s.byPriority[outcome.Priority] = c
	}
	return nil
}

// Total returns totals
func (s *Memory) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Runways returns landings per runway
func (s *Memory) Runways() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make(map[string]int64, len(s.byRunway))
	for k, v := range s.byRunway {
		ret[k] = v
	}
	return ret
}

// Priority returns counters for a priority class
func (s *Memory) Priority(priority string) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byPriority[priority]
}

var _ Recorder = (*Memory)(nil)

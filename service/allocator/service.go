package allocator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/viant/runway/model"
)

// ErrInvalidRelease is returned when a runway that is not busy, or not known, is released.
// It always indicates a bug in the caller (for example a double release).
var ErrInvalidRelease = errors.New("invalid release")

// DefaultRunways are the runways managed when no configuration is supplied.
var DefaultRunways = []string{"Runway A", "Runway B", "Runway C"}

// Config represents runway pool configuration
type Config struct {
	// Runways lists runway identifiers; order determines acquisition preference.
	Runways []string `json:"runways" yaml:"runways"`
}

// DefaultConfig returns the default runway pool configuration
func DefaultConfig() Config {
	return Config{Runways: append([]string(nil), DefaultRunways...)}
}

// Validate checks that runway identifiers are present and unique.
func (c Config) Validate() error {
	if len(c.Runways) == 0 {
		return fmt.Errorf("allocator: at least one runway is required")
	}
	seen := make(map[string]bool, len(c.Runways))
	for _, id := range c.Runways {
		if id == "" {
			return fmt.Errorf("allocator: runway id cannot be empty")
		}
		if seen[id] {
			return fmt.Errorf("allocator: duplicate runway %q", id)
		}
		seen[id] = true
	}
	return nil
}

// Pool tracks exclusive use of a fixed set of runways.
// Every Acquire/Release is serialized through a single mutex; the number of busy
// runways always equals the number of current holders.
type Pool struct {
	mu      sync.Mutex
	runways []*model.Runway
	byID    map[string]*model.Runway
}

// New creates a pool with all runways available. Duplicate ids are ignored.
func New(ids ...string) *Pool {
	if len(ids) == 0 {
		ids = DefaultRunways
	}
	p := &Pool{byID: make(map[string]*model.Runway, len(ids))}
	for _, id := range ids {
		if _, ok := p.byID[id]; ok {
			continue
		}
		runway := &model.Runway{ID: id, Status: model.RunwayAvailable}
		p.runways = append(p.runways, runway)
		p.byID[id] = runway
	}
	return p
}

// NewFromConfig creates a pool from a validated configuration.
func NewFromConfig(config Config) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return New(config.Runways...), nil
}

// Acquire marks the first available runway busy and returns its id.
// It never blocks; ok is false when every runway is busy.
func (p *Pool) Acquire() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, runway := range p.runways {
		if runway.IsAvailable() {
			runway.Status = model.RunwayBusy
			return runway.ID, true
		}
	}
	return "", false
}

// Release marks a busy runway available again.
func (p *Pool) Release(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	runway, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("%w: unknown runway %q", ErrInvalidRelease, id)
	}
	if runway.Status != model.RunwayBusy {
		return fmt.Errorf("%w: runway %q is not busy", ErrInvalidRelease, id)
	}
	runway.Status = model.RunwayAvailable
	return nil
}

// Size returns the number of runways in the pool. It never changes after construction.
func (p *Pool) Size() int {
	return len(p.runways)
}

// IDs returns runway identifiers in acquisition order.
func (p *Pool) IDs() []string {
	ret := make([]string, len(p.runways))
	for i, runway := range p.runways {
		ret[i] = runway.ID
	}
	return ret
}

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/runway/service/dao"
)

// Field extracts the value of a named field used for parameter filtering
type Field[T any] func(record *T, name string) (string, bool)

// MemoryStore is a generic in-memory implementation of dao.Service.
// It keeps entities of type *T mapped by the key returned by keySelector.
type MemoryStore[K comparable, T any] struct {
	mu          sync.RWMutex
	records     map[K]*T
	order       []K
	keySelector func(*T) K
	field       Field[T]
}

// NewMemoryStore creates a new MemoryStore; field may be nil when List filtering is not needed.
func NewMemoryStore[K comparable, T any](keySelector func(*T) K, field Field[T]) *MemoryStore[K, T] {
	return &MemoryStore[K, T]{
		records:     make(map[K]*T),
		keySelector: keySelector,
		field:       field,
	}
}

// Save stores or overwrites a record.
func (s *MemoryStore[K, T]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(v)
	var zero K
	if key == zero {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		s.order = append(s.order, key)
	}
	s.records[key] = v
	return nil
}

// Load returns a record by key.
func (s *MemoryStore[K, T]) Load(_ context.Context, key K) (*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", dao.ErrNotFound, key)
	}
	return v, nil
}

// Delete removes a record.
func (s *MemoryStore[K, T]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return nil
	}
	delete(s.records, key)
	for i, candidate := range s.order {
		if candidate == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns records in insertion order matching all parameters.
func (s *MemoryStore[K, T]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*T, 0, len(s.records))
	for _, key := range s.order {
		v := s.records[key]
		if s.matches(v, parameters) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *MemoryStore[K, T]) matches(v *T, parameters []*dao.Parameter) bool {
	for _, param := range parameters {
		if param == nil {
			continue
		}
		if s.field == nil {
			return false
		}
		value, ok := s.field(v, param.Name)
		if !ok || !param.Matches(value) {
			return false
		}
	}
	return true
}

var _ dao.Service[string, struct{}] = (*MemoryStore[string, struct{}])(nil)

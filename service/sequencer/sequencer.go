// Package sequencer buffers arrived landing requests and releases them in
// priority order: emergency before vip before normal, first-come first-served
// within a class.
package sequencer

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/viant/runway/model"
)

// ErrEmpty is returned when popping from an empty sequencer; callers must not dispatch.
var ErrEmpty = errors.New("sequencer empty")

type entry struct {
	request *model.Request
	seq     uint64
}

type entries []*entry

func (e entries) Len() int { return len(e) }

func (e entries) Less(i, j int) bool {
	if e[i].request.Priority != e[j].request.Priority {
		return e[i].request.Priority < e[j].request.Priority
	}
	return e[i].seq < e[j].seq
}

func (e entries) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

func (e *entries) Push(x any) { *e = append(*e, x.(*entry)) }

func (e *entries) Pop() any {
	old := *e
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*e = old[:n-1]
	return item
}

// Sequencer is a priority buffer of landing requests. It is safe for concurrent use.
// Duplicate plane ids are accepted and treated as distinct entries.
type Sequencer struct {
	mu      sync.Mutex
	entries entries
	seq     uint64
}

// New creates an empty sequencer
func New() *Sequencer {
	return &Sequencer{}
}

// Push inserts a request.
func (s *Sequencer) Push(request *model.Request) {
	if request == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	heap.Push(&s.entries, &entry{request: request, seq: s.seq})
}

// PopHighestPriority removes and returns the request with the smallest priority class,
// the earliest pushed among equals.
func (s *Sequencer) PopHighestPriority() (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, ErrEmpty
	}
	return heap.Pop(&s.entries).(*entry).request, nil
}

// Len returns the number of buffered requests.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Snapshot returns buffered plane ids in the order they would be popped.
func (s *Sequencer) Snapshot() []string {
	s.mu.Lock()
	clone := make(entries, len(s.entries))
	copy(clone, s.entries)
	s.mu.Unlock()

	ret := make([]string, 0, len(clone))
	for len(clone) > 0 {
		ret = append(ret, heap.Pop(&clone).(*entry).request.PlaneID)
	}
	return ret
}

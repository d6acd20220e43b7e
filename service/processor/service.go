package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/viant/runway/internal/clock"
	"github.com/viant/runway/model"
	"github.com/viant/runway/tracing"
)

var (
	// ErrQueueFull is returned by Submit when every worker is busy and the task buffer is full
	ErrQueueFull = errors.New("worker queue full")
	// ErrStopped is returned by Submit after shutdown was requested
	ErrStopped = errors.New("worker pool stopped")
)

// ReasonRunwaysBusy is the retry reason reported on contention
const ReasonRunwaysBusy = "all runways busy"

// Allocator hands out exclusive runways
type Allocator interface {
	Acquire() (string, bool)
	Release(id string) error
}

// Listener observes outcomes produced by a worker
type Listener func(workerID int, outcome model.Outcome)

// Service is the landing worker pool
type Service struct {
	config    Config
	allocator Allocator
	outcomes  chan model.Outcome
	listeners []Listener

	tasks    chan *model.Task
	mu       sync.Mutex
	started  bool
	stopped  bool
	shutdown sync.Once
	workerWg sync.WaitGroup
}

type worker struct {
	id      int
	service *Service
	ctx     context.Context
}

// New creates a worker pool
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, opt := range options {
		opt(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.allocator == nil {
		return nil, fmt.Errorf("allocator is required")
	}
	s.tasks = make(chan *model.Task, s.config.queueSize())
	if s.outcomes == nil {
		s.outcomes = make(chan model.Outcome, s.config.queueSize()+s.config.WorkerCount)
	}
	return s, nil
}

// Outcomes returns the channel workers emit outcomes on
func (s *Service) Outcomes() <-chan model.Outcome {
	return s.outcomes
}

// Config returns the effective configuration
func (s *Service) Config() Config {
	return s.config
}

// Start launches WorkerCount goroutines. The context only scopes tracing; a
// landing in progress is never interrupted, use Stop or StopWait to shut down.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return fmt.Errorf("worker pool already started")
	}
	s.started = true
	for i := 0; i < s.config.WorkerCount; i++ {
		w := &worker{id: i, service: s, ctx: ctx}
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Submit enqueues a task without blocking
func (s *Service) Submit(task *model.Task) error {
	if task == nil || task.Request == nil {
		return fmt.Errorf("task request cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	select {
	case s.tasks <- task:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, task.Request.PlaneID)
	}
}

// Pending returns the number of tasks waiting for a worker
func (s *Service) Pending() int {
	return len(s.tasks)
}

// Stop sends one stop signal per worker behind the queued tasks and waits for
// the workers to exit. Tasks submitted before Stop are still landed.
func (s *Service) Stop() {
	s.shutdown.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		s.mu.Unlock()
		if !started {
			s.abandon()
			return
		}
		for i := 0; i < s.config.WorkerCount; i++ {
			s.tasks <- nil
		}
	})
	s.workerWg.Wait()
}

// StopWait closes the task queue so workers drain it and exit, then waits.
func (s *Service) StopWait() {
	s.shutdown.Do(func() {
		s.mu.Lock()
		s.stopped = true
		started := s.started
		s.mu.Unlock()
		if !started {
			s.abandon()
		}
		close(s.tasks)
	})
	s.workerWg.Wait()
}

// abandon turns tasks queued on a pool that never started into retry outcomes
func (s *Service) abandon() {
	for {
		select {
		case task := <-s.tasks:
			if task == nil {
				continue
			}
			log.Printf("worker pool stopped before start, plane %s retrying", task.Request.PlaneID)
			s.outcomes <- task.Retry(ErrStopped.Error(), clock.Now())
		default:
			return
		}
	}
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	for task := range w.service.tasks {
		if task == nil {
			return
		}
		outcome := w.land(task)
		for _, listener := range w.service.listeners {
			listener(w.id, outcome)
		}
		w.service.outcomes <- outcome
	}
}

// land performs a single landing attempt and always returns an outcome
func (w *worker) land(task *model.Task) (outcome model.Outcome) {
	s := w.service
	planeID := task.Request.PlaneID
	_, span := tracing.StartSpan(w.ctx, "runway.land", tracing.KindInternal)
	span.WithAttributes(map[string]string{
		"plane.id":       planeID,
		"plane.priority": task.Request.Priority.String(),
		"worker.id":      strconv.Itoa(w.id),
	})
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	runway := ""
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("landing panic: %v", r)
		log.Printf("worker %d: %v (plane %s)", w.id, err, planeID)
		if runway != "" {
			w.release(span, runway, planeID)
		}
		outcome = task.Retry(err.Error(), clock.Now())
	}()

	var ok bool
	if runway, ok = s.allocator.Acquire(); !ok {
		log.Printf("worker %d: %s, plane %s retrying in %s", w.id, ReasonRunwaysBusy, planeID, s.config.Backoff)
		clock.Sleep(s.config.Backoff)
		span.WithAttributes(map[string]string{"landing.verdict": string(model.VerdictRetry)})
		return task.Retry(ReasonRunwaysBusy, clock.Now())
	}
	span.WithAttributes(map[string]string{"runway.id": runway})
	log.Printf("worker %d: plane %s (%s) landing on %s", w.id, planeID, task.Request.Priority, runway)
	clock.Sleep(s.config.Occupancy)
	acquired := runway
	runway = ""
	w.release(span, acquired, planeID)
	log.Printf("worker %d: plane %s landed on %s", w.id, planeID, acquired)
	span.WithAttributes(map[string]string{"landing.verdict": string(model.VerdictConfirm)})
	return task.Confirm(acquired, clock.Now())
}

// release returns the runway; a failure is an accounting bug, never a landing failure
func (w *worker) release(span *tracing.Span, runway, planeID string) {
	if err := w.service.allocator.Release(runway); err != nil {
		log.Printf("invariant violation: worker %d: plane %s: %v", w.id, planeID, err)
		span.AddEvent("invariant violation", map[string]string{"runway.id": runway, "error": err.Error()})
	}
}

package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/runway/internal/idgen"
	"github.com/viant/runway/service/messaging"
)

// Config for memory queue implementation
type Config struct {
	// Prefetch caps unacknowledged in-flight messages; 0 disables the limit.
	Prefetch int `json:"prefetch" yaml:"prefetch"`
	// MaxRetries caps redeliveries after Nack; 0 means redeliver indefinitely.
	MaxRetries int `json:"maxRetries" yaml:"maxRetries"`
	// RetryDelay is the wait before a nacked message becomes visible again.
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`
	// DeadLetter keeps messages that exhausted MaxRetries.
	DeadLetter  bool `json:"deadLetter" yaml:"deadLetter"`
	QueueBuffer int  `json:"queueBuffer" yaml:"queueBuffer"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		Prefetch:    10,
		MaxRetries:  0,
		RetryDelay:  100 * time.Millisecond,
		DeadLetter:  true,
		QueueBuffer: 100,
	}
}

// Message implements messaging.Message for the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	createdAt  time.Time
}

// ID returns the delivery identifier
func (m *Message[T]) ID() string {
	return m.id
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Redelivered reports how many times the message was nacked before this delivery.
func (m *Message[T]) Redelivered() int {
	return m.retryCount
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("%w: %s", messaging.ErrAlreadyProcessed, m.id)
	}
	m.processed = true
	m.queue.settle()
	return nil
}

// Nack requeues the message after the configured retry delay
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("%w: %s", messaging.ErrAlreadyProcessed, m.id)
	}
	m.processed = true
	m.queue.settle()

	retryCount := m.retryCount + 1
	if max := m.queue.config.MaxRetries; max > 0 && retryCount > max {
		if m.queue.config.DeadLetter {
			m.queue.dlqMu.Lock()
			m.queue.dlq = append(m.queue.dlq, m)
			m.queue.dlqMu.Unlock()
		}
		return nil
	}

	redelivery := &Message[T]{
		id:         m.id,
		payload:    m.payload,
		queue:      m.queue,
		retryCount: retryCount,
		createdAt:  time.Now(),
	}
	m.queue.pending.Add(1)
	time.AfterFunc(m.queue.config.RetryDelay, func() {
		defer m.queue.pending.Done()
		m.queue.messages <- redelivery
	})
	return nil
}

// Queue implements an in-memory messaging.Queue with a prefetch credit limit
type Queue[T any] struct {
	messages chan *Message[T]
	credits  chan struct{}
	pending  sync.WaitGroup
	dlq      []*Message[T]
	config   Config
	dlqMu    sync.Mutex
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	ret := &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		dlq:      make([]*Message[T], 0),
		config:   config,
	}
	if config.Prefetch > 0 {
		ret.credits = make(chan struct{}, config.Prefetch)
	}
	return ret
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &Message[T]{
		id:        idgen.New(),
		payload:   *t,
		queue:     q,
		createdAt: time.Now(),
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue. When Prefetch messages are
// already unacknowledged it blocks until one of them is settled.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	if q.credits != nil {
		select {
		case q.credits <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		q.settle()
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) settle() {
	if q.credits == nil {
		return
	}
	select {
	case <-q.credits:
	default:
	}
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// InFlight returns the number of delivered but unacknowledged messages
func (q *Queue[T]) InFlight() int {
	if q.credits == nil {
		return 0
	}
	return len(q.credits)
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// WaitRedeliveries blocks until every scheduled redelivery has been requeued.
func (q *Queue[T]) WaitRedeliveries() {
	q.pending.Wait()
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)

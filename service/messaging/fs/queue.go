package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/storage"
	"github.com/viant/runway/internal/idgen"
	"github.com/viant/runway/service/messaging"
)

// MessageState represents the state of a message in the filesystem queue
type MessageState string

const (
	// MessageStatePending indicates a message is waiting to be delivered
	MessageStatePending MessageState = "pending"

	// MessageStateProcessing indicates a message was delivered and awaits acknowledgment
	MessageStateProcessing MessageState = "processing"

	// MessageStateCompleted indicates a message was acknowledged
	MessageStateCompleted MessageState = "completed"

	// MessageStateDead indicates a message exhausted its redeliveries
	MessageStateDead MessageState = "dead"
)

// Message implements messaging.Message for the filesystem queue
type Message[T any] struct {
	MessageID    string       `json:"id"`
	Data         T            `json:"data"`
	State        MessageState `json:"state"`
	Error        string       `json:"error,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	VisibleAfter time.Time    `json:"visibleAfter"`
	Retries      int          `json:"retries"`

	queue     *Queue[T]
	fileName  string
	processed bool
	mu        sync.Mutex
}

// ID returns the delivery identifier
func (m *Message[T]) ID() string {
	return m.MessageID
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack acknowledges that the message was processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("%w: %s", messaging.ErrAlreadyProcessed, m.MessageID)
	}
	m.processed = true
	m.State = MessageStateCompleted
	m.UpdatedAt = time.Now()
	return m.queue.completeMessage(context.Background(), m)
}

// Nack returns the message to the pending directory, visible after the retry delay
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("%w: %s", messaging.ErrAlreadyProcessed, m.MessageID)
	}
	m.processed = true
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++
	m.UpdatedAt = time.Now()
	return m.queue.requeueMessage(context.Background(), m)
}

// QueueConfig holds configuration for filesystem queue
type QueueConfig struct {
	BasePath string `json:"basePath" yaml:"basePath"`
	// MaxRetries caps redeliveries; 0 means redeliver indefinitely.
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`
	// PollInterval is how often Consume rescans the pending directory.
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	// Prefetch caps unacknowledged messages delivered by this queue instance.
	Prefetch int `json:"prefetch" yaml:"prefetch"`
	// KeepCompleted moves acknowledged messages to the completed directory instead of deleting them.
	KeepCompleted bool `json:"keepCompleted" yaml:"keepCompleted"`
	// ProcessingTimeout returns a delivered but unacknowledged message to
	// pending once it was claimed this long ago; 0 disables reclaiming.
	ProcessingTimeout time.Duration `json:"processingTimeout" yaml:"processingTimeout"`
}

// DefaultConfig returns a default queue configuration
func DefaultConfig() QueueConfig {
	return QueueConfig{
		BasePath:          "/tmp/runway/queue",
		RetryDelay:        time.Second,
		PollInterval:      50 * time.Millisecond,
		Prefetch:          10,
		ProcessingTimeout: 30 * time.Second,
	}
}

// Queue implements a filesystem-based messaging.Queue
type Queue[T any] struct {
	fs            afs.Service
	config        QueueConfig
	pendingDir    string
	processingDir string
	completedDir  string
	dlqDir        string
	credits       chan struct{}
	mu            sync.Mutex
}

// NewQueue creates a new filesystem-based queue
func NewQueue[T any](fs afs.Service, config QueueConfig) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    path.Join(config.BasePath, "pending"),
		processingDir: path.Join(config.BasePath, "processing"),
		completedDir:  path.Join(config.BasePath, "completed"),
		dlqDir:        path.Join(config.BasePath, "dlq"),
	}
	if config.Prefetch > 0 {
		q.credits = make(chan struct{}, config.Prefetch)
	}

	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.completedDir, q.dlqDir} {
		exists, _ := fs.Exists(ctx, dir)
		if !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return q, nil
}

// Publish adds a new message to the pending directory
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := time.Now()
	message := &Message[T]{
		MessageID:    idgen.New(),
		Data:         *t,
		State:        MessageStatePending,
		CreatedAt:    now,
		UpdatedAt:    now,
		VisibleAfter: now,
	}
	return q.writeMessage(ctx, path.Join(q.pendingDir, q.generateFilename(message)), message)
}

// Consume polls the pending directory until a visible message is claimed or ctx is done
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	if q.credits != nil {
		select {
		case q.credits <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for {
		message, err := q.claim(ctx)
		if err != nil {
			q.settle()
			return nil, err
		}
		if message != nil {
			return message, nil
		}
		select {
		case <-ctx.Done():
			q.settle()
			return nil, ctx.Err()
		case <-time.After(q.config.PollInterval):
		}
	}
}

// claim moves the oldest visible pending message to the processing directory
func (q *Queue[T]) claim(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.reclaim(ctx); err != nil {
		return nil, err
	}
	pending, err := q.list(ctx, q.pendingDir)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, obj := range pending {
		message, err := q.readMessage(ctx, obj.URL())
		if err != nil {
			_ = q.fs.Move(ctx, obj.URL(), path.Join(q.dlqDir, "invalid-"+obj.Name()))
			continue
		}
		if message.VisibleAfter.After(now) {
			continue
		}
		processingURL := path.Join(q.processingDir, obj.Name())
		if err := q.fs.Move(ctx, obj.URL(), processingURL); err != nil {
			// claimed by another consumer
			continue
		}
		message.State = MessageStateProcessing
		message.UpdatedAt = now
		message.fileName = obj.Name()
		message.queue = q
		// UpdatedAt in the processing file is the claim time used by reclaim
		if err := q.writeMessage(ctx, processingURL, message); err != nil {
			return nil, fmt.Errorf("failed to mark message %s processing: %w", message.MessageID, err)
		}
		return message, nil
	}
	return nil, nil
}

// reclaim moves messages claimed longer than ProcessingTimeout ago back to pending
func (q *Queue[T]) reclaim(ctx context.Context) error {
	if q.config.ProcessingTimeout <= 0 {
		return nil
	}
	processing, err := q.list(ctx, q.processingDir)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(-q.config.ProcessingTimeout)
	for _, obj := range processing {
		message, err := q.readMessage(ctx, obj.URL())
		if err != nil || message.UpdatedAt.After(deadline) {
			continue
		}
		message.State = MessageStatePending
		message.UpdatedAt = time.Now()
		message.VisibleAfter = message.UpdatedAt
		if err := q.writeMessage(ctx, path.Join(q.pendingDir, q.generateFilename(message)), message); err != nil {
			return fmt.Errorf("failed to reclaim message %s: %w", message.MessageID, err)
		}
		if err := q.fs.Delete(ctx, obj.URL()); err != nil {
			return fmt.Errorf("failed to delete reclaimed message %s: %w", message.MessageID, err)
		}
		log.Printf("warning: fs queue %s: message %s unacknowledged for %s, redelivering", q.config.BasePath, message.MessageID, q.config.ProcessingTimeout)
	}
	return nil
}

// list returns the message files in dir ordered by name
func (q *Queue[T]) list(ctx context.Context, dir string) ([]storage.Object, error) {
	objects, err := q.fs.List(ctx, dir, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var ret []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			ret = append(ret, obj)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name() < ret[j].Name() })
	return ret, nil
}

// completeMessage removes an acknowledged message from the processing directory
func (q *Queue[T]) completeMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.settle()

	processingURL := path.Join(q.processingDir, m.fileName)
	if q.config.KeepCompleted {
		if err := q.writeMessage(ctx, path.Join(q.completedDir, m.fileName), m); err != nil {
			return fmt.Errorf("failed to write message to completed directory: %w", err)
		}
	}
	if err := q.fs.Delete(ctx, processingURL); err != nil {
		return fmt.Errorf("failed to delete message from processing directory: %w", err)
	}
	return nil
}

// requeueMessage moves a nacked message back to pending, or to the DLQ once retries are exhausted
func (q *Queue[T]) requeueMessage(ctx context.Context, m *Message[T]) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	defer q.settle()

	processingURL := path.Join(q.processingDir, m.fileName)
	if q.config.MaxRetries > 0 && m.Retries > q.config.MaxRetries {
		m.State = MessageStateDead
		if err := q.writeMessage(ctx, path.Join(q.dlqDir, m.fileName), m); err != nil {
			return fmt.Errorf("failed to write message to DLQ: %w", err)
		}
	} else {
		m.State = MessageStatePending
		m.VisibleAfter = time.Now().Add(q.config.RetryDelay)
		if err := q.writeMessage(ctx, path.Join(q.pendingDir, q.generateFilename(m)), m); err != nil {
			return fmt.Errorf("failed to requeue message: %w", err)
		}
	}
	if err := q.fs.Delete(ctx, processingURL); err != nil {
		return fmt.Errorf("failed to delete message from processing directory: %w", err)
	}
	return nil
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

// generateFilename orders messages by visibility time so the oldest is delivered first
func (q *Queue[T]) generateFilename(m *Message[T]) string {
	return fmt.Sprintf("%020d-%s.json", m.VisibleAfter.UnixNano(), m.MessageID)
}

func (q *Queue[T]) writeMessage(ctx context.Context, URL string, m *Message[T]) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data))
}

func (q *Queue[T]) readMessage(ctx context.Context, URL string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	message := &Message[T]{}
	if err := json.Unmarshal(data, message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", URL, err)
	}
	return message, nil
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)

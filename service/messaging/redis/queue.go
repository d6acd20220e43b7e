// Package redis implements messaging.Queue on top of a Redis Stream consumer
// group. Nack re-adds the payload to the stream and acknowledges the original
// entry, which mirrors a broker requeue: the message is redelivered later,
// possibly to another consumer. Entries left unacknowledged for ClaimIdle,
// e.g. by a crashed consumer, are claimed with XAUTOCLAIM and delivered again.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/viant/runway/internal/idgen"
	"github.com/viant/runway/service/messaging"
)

const (
	payloadField = "payload"
	retriesField = "retries"
	errorField   = "error"

	blockMargin = 5 * time.Millisecond
)

// Config for the redis streams queue
type Config struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	// Stream defaults to the queue name.
	Stream   string `json:"stream" yaml:"stream"`
	Group    string `json:"group" yaml:"group"`
	Consumer string `json:"consumer" yaml:"consumer"`
	// Prefetch is the XREADGROUP COUNT and caps unacknowledged deliveries.
	Prefetch int `json:"prefetch" yaml:"prefetch"`
	// Block bounds a single XREADGROUP call.
	Block time.Duration `json:"block" yaml:"block"`
	// MaxRetries caps redeliveries; 0 means redeliver indefinitely. Entries
	// over the cap are moved to the DeadLetter stream.
	MaxRetries int `json:"maxRetries" yaml:"maxRetries"`
	// DeadLetter defaults to "<stream>:dlq".
	DeadLetter string `json:"deadLetter" yaml:"deadLetter"`
	// ClaimIdle is how long a delivery may stay unacknowledged before it is
	// claimed and delivered again; 0 disables claiming.
	ClaimIdle time.Duration `json:"claimIdle" yaml:"claimIdle"`
}

// DefaultConfig returns the default redis queue configuration
func DefaultConfig() Config {
	return Config{
		Addr:     "localhost:6379",
		Group:    "runway",
		Prefetch:  10,
		Block:     time.Second,
		ClaimIdle: 30 * time.Second,
	}
}

// Message implements messaging.Message for a stream entry
type Message[T any] struct {
	id        string
	entryID   string
	payload   T
	retries   int
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// ID returns the delivery identifier carried across redeliveries
func (m *Message[T]) ID() string {
	return m.id
}

// EntryID returns the stream entry id of this delivery
func (m *Message[T]) EntryID() string {
	return m.entryID
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the stream entry
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("%w: %s", messaging.ErrAlreadyProcessed, m.id)
	}
	m.processed = true
	defer m.queue.settle()
	return m.queue.ack(context.Background(), m.entryID)
}

// Nack re-adds the payload to the stream and acknowledges the original entry
func (m *Message[T]) Nack(cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("%w: %s", messaging.ErrAlreadyProcessed, m.id)
	}
	m.processed = true
	defer m.queue.settle()

	ctx := context.Background()
	retries := m.retries + 1
	stream := m.queue.config.Stream
	if max := m.queue.config.MaxRetries; max > 0 && retries > max {
		stream = m.queue.config.DeadLetter
		log.Printf("warning: redis queue %s: message %s exceeded %d retries, moving to %s", m.queue.config.Stream, m.id, max, stream)
	}
	values, err := encodeValues(m.id, &m.payload, retries, cause)
	if err != nil {
		return err
	}
	if err := m.queue.client.XAdd(ctx, &goredis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to requeue %s: %w", m.id, err)
	}
	return m.queue.ack(ctx, m.entryID)
}

// Queue implements messaging.Queue over a redis stream consumer group
type Queue[T any] struct {
	client  goredis.UniversalClient
	config  Config
	credits chan struct{}
	owned   bool

	mu       sync.Mutex
	buffered []*Message[T]
}

// NewQueue creates a queue bound to stream name, creating the consumer group when missing.
func NewQueue[T any](ctx context.Context, name string, config Config) (*Queue[T], error) {
	client := goredis.NewClient(&goredis.Options{Addr: config.Addr, Password: config.Password, DB: config.DB})
	ret, err := NewQueueWithClient[T](ctx, client, name, config)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	ret.owned = true
	return ret, nil
}

// NewQueueWithClient creates a queue using an existing client.
func NewQueueWithClient[T any](ctx context.Context, client goredis.UniversalClient, name string, config Config) (*Queue[T], error) {
	defaults := DefaultConfig()
	if config.Stream == "" {
		config.Stream = name
	}
	if config.Stream == "" {
		return nil, fmt.Errorf("redis queue: stream name cannot be empty")
	}
	if config.Group == "" {
		config.Group = defaults.Group
	}
	if config.Consumer == "" {
		config.Consumer = defaultConsumer()
	}
	if config.DeadLetter == "" {
		config.DeadLetter = config.Stream + ":dlq"
	}
	if config.Block <= 0 {
		config.Block = defaults.Block
	}
	ret := &Queue[T]{client: client, config: config}
	if config.Prefetch > 0 {
		ret.credits = make(chan struct{}, config.Prefetch)
	}
	if err := ret.ensureGroup(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}

// defaultConsumer is stable across restarts on one host so a restarted
// process owns the entries it left pending.
func defaultConsumer() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "consumer-" + host
	}
	return "consumer"
}

func (q *Queue[T]) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.config.Stream, q.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", q.config.Group, q.config.Stream, err)
	}
	return nil
}

// Publish appends the payload to the stream
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	values, err := encodeValues(idgen.New(), t, 0, nil)
	if err != nil {
		return err
	}
	return q.client.XAdd(ctx, &goredis.XAddArgs{Stream: q.config.Stream, Values: values}).Err()
}

// Consume delivers the next entry for this consumer, reading up to Prefetch entries per round trip
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	if q.credits != nil {
		select {
		case q.credits <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for {
		if msg := q.next(); msg != nil {
			return msg, nil
		}
		if err := ctx.Err(); err != nil {
			q.settle()
			return nil, err
		}
		if err := q.read(ctx); err != nil {
			if errors.Is(err, goredis.Nil) {
				continue
			}
			q.settle()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
	}
}

func (q *Queue[T]) next() *Message[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buffered) == 0 {
		return nil
	}
	msg := q.buffered[0]
	q.buffered = q.buffered[1:]
	return msg
}

func (q *Queue[T]) read(ctx context.Context) error {
	block := q.config.Block
	if deadline, ok := ctx.Deadline(); ok {
		// the server must answer before the connection deadline derived from ctx
		if remaining := time.Until(deadline) - blockMargin; remaining < block {
			block = remaining
		}
	}
	// BLOCK 0 waits forever
	if block < time.Millisecond {
		return context.DeadlineExceeded
	}
	count := int64(q.config.Prefetch)
	if count <= 0 {
		count = 1
	}
	if claimed, err := q.claim(ctx, count); err != nil || claimed > 0 {
		return err
	}
	streams, err := q.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		Streams:  []string{q.config.Stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		return err
	}
	for _, stream := range streams {
		q.buffer(ctx, stream.Messages)
	}
	return nil
}

// claim takes over entries idle for at least ClaimIdle and returns how many were buffered
func (q *Queue[T]) claim(ctx context.Context, count int64) (int, error) {
	if q.config.ClaimIdle <= 0 {
		return 0, nil
	}
	entries, _, err := q.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   q.config.Stream,
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		MinIdle:  q.config.ClaimIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to claim idle entries on %s: %w", q.config.Stream, err)
	}
	return q.buffer(ctx, entries), nil
}

func (q *Queue[T]) buffer(ctx context.Context, entries []goredis.XMessage) int {
	count := 0
	for _, entry := range entries {
		msg, err := decodeEntry[T](entry)
		if err != nil {
			// poison entry: acknowledge so it is not redelivered to the group forever
			log.Printf("warning: redis queue %s: dropping %v", q.config.Stream, err)
			_ = q.ack(ctx, entry.ID)
			continue
		}
		msg.queue = q
		q.mu.Lock()
		q.buffered = append(q.buffered, msg)
		q.mu.Unlock()
		count++
	}
	return count
}

func (q *Queue[T]) ack(ctx context.Context, entryID string) error {
	if err := q.client.XAck(ctx, q.config.Stream, q.config.Group, entryID).Err(); err != nil {
		return fmt.Errorf("failed to ack %s: %w", entryID, err)
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

// Close releases the client when it was created by NewQueue
func (q *Queue[T]) Close() error {
	if !q.owned {
		return nil
	}
	return q.client.Close()
}

func encodeValues[T any](id string, t *T, retries int, cause error) (map[string]interface{}, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	values := map[string]interface{}{
		"id":         id,
		payloadField: string(data),
		retriesField: strconv.Itoa(retries),
	}
	if cause != nil {
		values[errorField] = cause.Error()
	}
	return values, nil
}

func decodeEntry[T any](entry goredis.XMessage) (*Message[T], error) {
	payload, ok := entry.Values[payloadField].(string)
	if !ok {
		return nil, fmt.Errorf("entry %s: missing %s field", entry.ID, payloadField)
	}
	msg := &Message[T]{entryID: entry.ID, id: entry.ID}
	if id, ok := entry.Values["id"].(string); ok && id != "" {
		msg.id = id
	}
	if raw, ok := entry.Values[retriesField].(string); ok {
		msg.retries, _ = strconv.Atoi(raw)
	}
	if err := json.Unmarshal([]byte(payload), &msg.payload); err != nil {
		return nil, fmt.Errorf("entry %s: %w", entry.ID, err)
	}
	return msg, nil
}

var (
	_ messaging.Queue[any] = (*Queue[any])(nil)
	_ messaging.Closer     = (*Queue[any])(nil)
)

package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/runway/service/messaging"
)

type TestPayload struct {
	ID      string
	Message string
	Count   int
}

func TestQueue(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[TestPayload](config)

	ctx := context.Background()
	payload := TestPayload{ID: "test-1", Message: "Hello, world!", Count: 1}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.NotEmpty(t, message.ID())
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.InFlight())
	assert.Equal(t, payload, *message.T())

	err = message.Ack()
	assert.NoError(t, err)
	assert.Equal(t, 0, queue.InFlight())

	err = message.Ack()
	assert.ErrorIs(t, err, messaging.ErrAlreadyProcessed)
	err = message.Nack(nil)
	assert.ErrorIs(t, err, messaging.ErrAlreadyProcessed)
}

func TestQueueRedelivery(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[TestPayload](config)
	ctx := context.Background()

	payload := TestPayload{ID: "retry-test"}
	assert.NoError(t, queue.Publish(ctx, &payload))

	first, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, first.Nack(fmt.Errorf("all runways busy")))
	queue.WaitRedeliveries()

	second, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, "retry-test", second.T().ID)
	assert.Equal(t, 1, second.(*Message[TestPayload]).Redelivered())
	assert.NoError(t, second.Ack())
	assert.Equal(t, 0, queue.DLQSize())
}

func TestQueueDeadLetter(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = time.Millisecond
	queue := NewQueue[TestPayload](config)
	ctx := context.Background()

	payload := TestPayload{ID: "dlq"}
	assert.NoError(t, queue.Publish(ctx, &payload))

	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		assert.NoError(t, err)
		assert.NoError(t, message.Nack(nil))
		queue.WaitRedeliveries()
	}

	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueuePrefetch(t *testing.T) {
	config := DefaultConfig()
	config.Prefetch = 2
	queue := NewQueue[TestPayload](config)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.NoError(t, queue.Publish(ctx, &TestPayload{Count: i}))
	}

	m1, err := queue.Consume(ctx)
	assert.NoError(t, err)
	_, err = queue.Consume(ctx)
	assert.NoError(t, err)

	// third delivery must wait for credit
	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, queue.InFlight())
	assert.Equal(t, 1, queue.Size())

	assert.NoError(t, m1.Ack())
	m3, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 2, m3.T().Count)
}

func TestQueueConcurrency(t *testing.T) {
	config := DefaultConfig()
	config.Prefetch = 0
	queue := NewQueue[TestPayload](config)

	ctx := context.Background()
	concurrency := 10
	messagesPerProducer := 10

	var wg sync.WaitGroup
	wg.Add(concurrency * 2)

	var consumedCount int
	var consumedMu sync.Mutex

	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				message, err := queue.Consume(ctx)
				if err != nil {
					t.Errorf("Error consuming: %v", err)
					continue
				}
				assert.NoError(t, message.Ack())
				consumedMu.Lock()
				consumedCount++
				consumedMu.Unlock()
			}
		}()
	}

	for i := 0; i < concurrency; i++ {
		go func(producerID int) {
			defer wg.Done()
			for j := 0; j < messagesPerProducer; j++ {
				payload := TestPayload{ID: fmt.Sprintf("p%d-m%d", producerID, j), Count: j}
				if err := queue.Publish(ctx, &payload); err != nil {
					t.Errorf("Error publishing: %v", err)
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out")
	}

	assert.Equal(t, concurrency*messagesPerProducer, consumedCount)
	assert.Equal(t, 0, queue.Size())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	payload := TestPayload{ID: "test"}
	err := queue.Publish(ctx, &payload)
	assert.Error(t, err)

	ctxWithTimeout, cancelTimeout := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelTimeout()
	_, err = queue.Consume(ctxWithTimeout)
	assert.Error(t, err)
	assert.Equal(t, 0, queue.InFlight(), "credit must be returned when consume times out")

	err = queue.Publish(context.Background(), &payload)
	assert.NoError(t, err)
	message, err := queue.Consume(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, message)
}

package fs

import (
	"context"
	"fmt"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	"github.com/viant/runway/service/messaging"
)

type TestPayload struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func countFiles(t *testing.T, fs afs.Service, dir string) int {
	objects, err := fs.List(context.Background(), dir)
	assert.NoError(t, err)
	count := 0
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			count++
		}
	}
	return count
}

func newTestQueue(t *testing.T, config QueueConfig) (*Queue[TestPayload], afs.Service) {
	fs := afs.New()
	config.BasePath = t.TempDir()
	queue, err := NewQueue[TestPayload](fs, config)
	assert.NoError(t, err)
	return queue, fs
}

func TestQueue(t *testing.T) {
	queue, fs := newTestQueue(t, QueueConfig{PollInterval: 5 * time.Millisecond, KeepCompleted: true})
	ctx := context.Background()

	for _, dir := range []string{queue.pendingDir, queue.processingDir, queue.completedDir, queue.dlqDir} {
		exists, err := fs.Exists(ctx, dir)
		assert.NoError(t, err)
		assert.True(t, exists, fmt.Sprintf("Directory %s should exist", dir))
	}

	testCases := []TestPayload{
		{ID: "1", Message: "Test message 1", Count: 1},
		{ID: "2", Message: "Test message 2", Count: 2},
		{ID: "3", Message: "Test message 3", Count: 3},
	}
	for i := range testCases {
		assert.NoError(t, queue.Publish(ctx, &testCases[i]))
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 3, countFiles(t, fs, queue.pendingDir))

	for i := range testCases {
		message, err := queue.Consume(ctx)
		assert.NoError(t, err)
		if !assert.NotNil(t, message) {
			return
		}
		assert.Equal(t, testCases[i].ID, message.T().ID, "oldest message first")
		assert.Equal(t, 1, countFiles(t, fs, queue.processingDir))

		assert.NoError(t, message.Ack())
		assert.ErrorIs(t, message.Ack(), messaging.ErrAlreadyProcessed)
		assert.Equal(t, i+1, countFiles(t, fs, queue.completedDir))
		assert.Equal(t, 0, countFiles(t, fs, queue.processingDir))
	}
}

func TestQueueRequeue(t *testing.T) {
	queue, fs := newTestQueue(t, QueueConfig{PollInterval: 5 * time.Millisecond, MaxRetries: 2, RetryDelay: 20 * time.Millisecond})
	ctx := context.Background()

	payload := TestPayload{ID: "4", Message: "Failure test", Count: 4}
	assert.NoError(t, queue.Publish(ctx, &payload))

	var deliveryID string
	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		assert.NoError(t, err)
		if !assert.NotNil(t, message) {
			return
		}
		if deliveryID == "" {
			deliveryID = message.ID()
		}
		assert.Equal(t, deliveryID, message.ID(), "redelivery keeps the delivery id")
		assert.NoError(t, message.Nack(fmt.Errorf("all runways busy")))
	}

	assert.Equal(t, 1, countFiles(t, fs, queue.dlqDir))
	assert.Equal(t, 0, countFiles(t, fs, queue.pendingDir))

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	message, err := queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, message)
}

func TestQueueRetryDelay(t *testing.T) {
	queue, _ := newTestQueue(t, QueueConfig{PollInterval: 5 * time.Millisecond, RetryDelay: 100 * time.Millisecond})
	ctx := context.Background()
	assert.NoError(t, queue.Publish(ctx, &TestPayload{ID: "late"}))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(nil))

	early, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = queue.Consume(early)
	assert.Error(t, err, "message must stay invisible during the retry delay")

	message, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "late", message.T().ID)
	assert.Equal(t, 1, message.(*Message[TestPayload]).Retries)
}

func TestQueueInitialization(t *testing.T) {
	fs := afs.New()
	_, err := NewQueue[TestPayload](fs, QueueConfig{})
	assert.Error(t, err, "Should error with empty BasePath")

	config := QueueConfig{BasePath: path.Join(t.TempDir(), "nested", "queue")}
	queue, err := NewQueue[TestPayload](fs, config)
	assert.NoError(t, err)
	assert.NotNil(t, queue)
	assert.Equal(t, DefaultConfig().PollInterval, queue.config.PollInterval)
}

func TestQueueReclaimsUnacknowledged(t *testing.T) {
	fs := afs.New()
	config := QueueConfig{BasePath: t.TempDir(), PollInterval: 5 * time.Millisecond, ProcessingTimeout: 50 * time.Millisecond}
	crashed, err := NewQueue[TestPayload](fs, config)
	assert.NoError(t, err)
	assert.NoError(t, crashed.Publish(context.Background(), &TestPayload{ID: "1"}))

	lost, err := crashed.Consume(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, countFiles(t, fs, crashed.processingDir))

	restarted, err := NewQueue[TestPayload](fs, config)
	assert.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err = restarted.Consume(ctx)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded, "claimed message not yet timed out")

	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	message, err := restarted.Consume(ctx)
	assert.NoError(t, err)
	if !assert.NotNil(t, message) {
		return
	}
	assert.Equal(t, lost.ID(), message.ID())
	assert.Equal(t, "1", message.T().ID)
	assert.NoError(t, message.Ack())
	assert.Equal(t, 0, countFiles(t, fs, restarted.processingDir))
	assert.Equal(t, 0, countFiles(t, fs, restarted.pendingDir))
}

func TestQueueReclaimDisabled(t *testing.T) {
	queue, fs := newTestQueue(t, QueueConfig{PollInterval: 5 * time.Millisecond})
	assert.NoError(t, queue.Publish(context.Background(), &TestPayload{ID: "1"}))
	_, err := queue.Consume(context.Background())
	assert.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, countFiles(t, fs, queue.processingDir))
}

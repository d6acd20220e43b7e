package atc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/runway/model"
	"github.com/viant/runway/progress"
	"github.com/viant/runway/service/messaging"
	"github.com/viant/runway/service/messaging/memory"
)

type failingQueue struct{}

func (failingQueue) Publish(context.Context, *json.RawMessage) error {
	return errors.New("broker unavailable")
}

func (failingQueue) Consume(ctx context.Context) (messaging.Message[json.RawMessage], error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func publish(t *testing.T, queue messaging.Queue[json.RawMessage], payloads ...string) {
	for _, payload := range payloads {
		raw := json.RawMessage(payload)
		assert.NoError(t, queue.Publish(context.Background(), &raw))
	}
}

func queueConfig() memory.Config {
	return memory.Config{Prefetch: 10, RetryDelay: 5 * time.Millisecond, QueueBuffer: 20}
}

func TestService_Cycle(t *testing.T) {
	intake := memory.NewQueue[json.RawMessage](queueConfig())
	dispatch := memory.NewQueue[json.RawMessage](queueConfig())
	tracker := progress.New()
	service, err := New(intake, dispatch, WithProgress(tracker), WithConfig(Config{DrainInterval: 50 * time.Millisecond, MaxBatch: 10}))
	assert.NoError(t, err)

	publish(t, intake,
		`{"plane_id":"n1","plane_type":"small","priority":"normal"}`,
		`{"plane_id":"v1","plane_type":"medium","priority":"vip"}`,
		`not json`,
		`{"plane_id":"e1","plane_type":"large","priority":"emergency"}`,
		`{"plane_id":"n2","plane_type":"small","priority":"normal"}`,
	)

	forwarded, err := service.Cycle(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 4, forwarded)
	assert.Equal(t, 0, intake.InFlight())
	assert.Equal(t, 0, intake.Size())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var order []string
	for i := 0; i < 4; i++ {
		msg, err := dispatch.Consume(ctx)
		assert.NoError(t, err)
		request, err := model.DecodeRequest(*msg.T())
		assert.NoError(t, err)
		order = append(order, request.PlaneID)
		assert.NoError(t, msg.Ack())
	}
	assert.Equal(t, []string{"e1", "v1", "n1", "n2"}, order)

	snapshot := tracker.Snapshot()
	assert.Equal(t, 5, snapshot.Received)
	assert.Equal(t, 1, snapshot.Rejected)
	assert.Equal(t, 4, snapshot.Dispatched)
}

func TestService_CycleEmpty(t *testing.T) {
	intake := memory.NewQueue[json.RawMessage](queueConfig())
	service, err := New(intake, memory.NewQueue[json.RawMessage](queueConfig()), WithConfig(Config{DrainInterval: 10 * time.Millisecond, MaxBatch: 1}))
	assert.NoError(t, err)
	forwarded, err := service.Cycle(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, forwarded)
}

func TestService_ForwardFailureRequeues(t *testing.T) {
	intake := memory.NewQueue[json.RawMessage](queueConfig())
	service, err := New(intake, failingQueue{}, WithConfig(Config{DrainInterval: 20 * time.Millisecond, MaxBatch: 5}))
	assert.NoError(t, err)
	publish(t, intake, `{"plane_id":"v1","plane_type":"medium","priority":"vip"}`)

	forwarded, err := service.Cycle(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, forwarded)

	intake.WaitRedeliveries()
	assert.Equal(t, 1, intake.Size(), "message requeued for another attempt")
}

func TestService_Run(t *testing.T) {
	intake := memory.NewQueue[json.RawMessage](queueConfig())
	dispatch := memory.NewQueue[json.RawMessage](queueConfig())
	service, err := New(intake, dispatch, WithConfig(Config{DrainInterval: 10 * time.Millisecond, MaxBatch: 5}))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()
	publish(t, intake, `{"plane_id":"e1","plane_type":"large","priority":"emergency"}`)

	consumeCtx, consumeCancel := context.WithTimeout(context.Background(), time.Second)
	defer consumeCancel()
	msg, err := dispatch.Consume(consumeCtx)
	assert.NoError(t, err)
	assert.Contains(t, string(*msg.T()), `"e1"`)
	cancel()
	assert.NoError(t, <-done)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
	q := memory.NewQueue[json.RawMessage](queueConfig())
	_, err = New(q, q, WithConfig(Config{}))
	assert.Error(t, err)
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/viant/runway/service/messaging"
)

type landing struct {
	PlaneID string `json:"plane_id"`
}

func TestEncodeDecodeEntry(t *testing.T) {
	payload := landing{PlaneID: "ab12cd34"}
	values, err := encodeValues("delivery-1", &payload, 2, errors.New("all runways busy"))
	assert.NoError(t, err)
	assert.Equal(t, "2", values[retriesField])
	assert.Equal(t, "all runways busy", values[errorField])

	msg, err := decodeEntry[landing](goredis.XMessage{ID: "1700000000000-0", Values: values})
	assert.NoError(t, err)
	assert.Equal(t, "delivery-1", msg.ID())
	assert.Equal(t, "1700000000000-0", msg.EntryID())
	assert.Equal(t, 2, msg.retries)
	assert.Equal(t, payload, *msg.T())
}

func TestDecodeEntry_RawJSON(t *testing.T) {
	raw := json.RawMessage(`{"plane_id":"x1","plane_type":"small","priority":"vip"}`)
	values, err := encodeValues("d", &raw, 0, nil)
	assert.NoError(t, err)
	_, hasErr := values[errorField]
	assert.False(t, hasErr)

	msg, err := decodeEntry[json.RawMessage](goredis.XMessage{ID: "1-0", Values: values})
	assert.NoError(t, err)
	assert.JSONEq(t, string(raw), string(*msg.T()))
}

func TestDecodeEntry_Invalid(t *testing.T) {
	testCases := []struct {
		name   string
		values map[string]interface{}
	}{
		{name: "missing payload", values: map[string]interface{}{"id": "x"}},
		{name: "bad json", values: map[string]interface{}{payloadField: "{"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeEntry[landing](goredis.XMessage{ID: "1-0", Values: tc.values})
			assert.Error(t, err)
		})
	}

	msg, err := decodeEntry[landing](goredis.XMessage{ID: "9-0", Values: map[string]interface{}{payloadField: `{"plane_id":"p"}`}})
	assert.NoError(t, err)
	assert.Equal(t, "9-0", msg.ID(), "entry id is the fallback delivery id")
}

const stream = "ready_for_landing"

func newClient(t *testing.T) *goredis.Client {
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestQueue(t *testing.T, client *goredis.Client, config Config) *Queue[landing] {
	queue, err := NewQueueWithClient[landing](context.Background(), client, stream, config)
	assert.NoError(t, err)
	return queue
}

func consume(t *testing.T, queue *Queue[landing], timeout time.Duration) (messaging.Message[landing], error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return queue.Consume(ctx)
}

func pending(t *testing.T, client *goredis.Client) int64 {
	info, err := client.XPending(context.Background(), stream, DefaultConfig().Group).Result()
	assert.NoError(t, err)
	return info.Count
}

func TestQueue_ConsumeAck(t *testing.T) {
	client := newClient(t)
	queue := newTestQueue(t, client, Config{Consumer: "a", Prefetch: 10})
	assert.NoError(t, queue.Publish(context.Background(), &landing{PlaneID: "p1"}))

	msg, err := consume(t, queue, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "p1", msg.T().PlaneID)
	assert.EqualValues(t, 1, pending(t, client))

	assert.NoError(t, msg.Ack())
	assert.EqualValues(t, 0, pending(t, client))
	assert.ErrorIs(t, msg.Ack(), messaging.ErrAlreadyProcessed)
	assert.ErrorIs(t, msg.Nack(errors.New("late")), messaging.ErrAlreadyProcessed)
}

func TestQueue_ExistingGroup(t *testing.T) {
	client := newClient(t)
	first := newTestQueue(t, client, Config{Consumer: "a"})
	second := newTestQueue(t, client, Config{Consumer: "b"})
	assert.NoError(t, first.Publish(context.Background(), &landing{PlaneID: "p1"}))

	msg, err := consume(t, second, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "p1", msg.T().PlaneID)
	assert.NoError(t, msg.Ack())
}

func TestQueue_NackRedelivers(t *testing.T) {
	client := newClient(t)
	queue := newTestQueue(t, client, Config{Consumer: "a", Prefetch: 10})
	assert.NoError(t, queue.Publish(context.Background(), &landing{PlaneID: "p1"}))

	msg, err := consume(t, queue, time.Second)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("all runways busy")))

	again, err := consume(t, queue, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, msg.ID(), again.ID(), "delivery id survives the requeue")
	assert.NotEqual(t, msg.(*Message[landing]).EntryID(), again.(*Message[landing]).EntryID())
	assert.Equal(t, 1, again.(*Message[landing]).retries)
	assert.NoError(t, again.Ack())
	assert.EqualValues(t, 0, pending(t, client))
}

func TestQueue_MaxRetriesDeadLetter(t *testing.T) {
	client := newClient(t)
	queue := newTestQueue(t, client, Config{Consumer: "a", Prefetch: 10, MaxRetries: 1})
	assert.NoError(t, queue.Publish(context.Background(), &landing{PlaneID: "p1"}))

	for i := 0; i < 2; i++ {
		msg, err := consume(t, queue, time.Second)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, msg.Nack(errors.New("all runways busy")))
	}

	_, err := consume(t, queue, 100*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	dead, err := client.XRange(context.Background(), stream+":dlq", "-", "+").Result()
	assert.NoError(t, err)
	if assert.Len(t, dead, 1) {
		assert.Equal(t, "2", dead[0].Values[retriesField])
		assert.Equal(t, "all runways busy", dead[0].Values[errorField])
	}
	assert.EqualValues(t, 0, pending(t, client))
}

func TestQueue_PrefetchBound(t *testing.T) {
	client := newClient(t)
	queue := newTestQueue(t, client, Config{Consumer: "a", Prefetch: 1})
	assert.NoError(t, queue.Publish(context.Background(), &landing{PlaneID: "p1"}))
	assert.NoError(t, queue.Publish(context.Background(), &landing{PlaneID: "p2"}))

	first, err := consume(t, queue, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "p1", first.T().PlaneID)

	_, err = consume(t, queue, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "no delivery beyond the prefetch limit")
	assert.EqualValues(t, 1, pending(t, client))

	assert.NoError(t, first.Ack())
	second, err := consume(t, queue, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "p2", second.T().PlaneID)
	assert.NoError(t, second.Ack())
}

func TestQueue_ClaimsIdleDeliveries(t *testing.T) {
	client := newClient(t)
	crashed := newTestQueue(t, client, Config{Consumer: "a", Prefetch: 10})
	assert.NoError(t, crashed.Publish(context.Background(), &landing{PlaneID: "p1"}))
	lost, err := consume(t, crashed, time.Second)
	assert.NoError(t, err)

	restarted := newTestQueue(t, client, Config{Consumer: "b", Prefetch: 10, ClaimIdle: 50 * time.Millisecond})
	_, err = consume(t, restarted, 20*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "delivery not idle long enough")

	time.Sleep(80 * time.Millisecond)
	msg, err := consume(t, restarted, time.Second)
	assert.NoError(t, err)
	assert.Equal(t, lost.ID(), msg.ID())
	assert.Equal(t, "p1", msg.T().PlaneID)
	assert.NoError(t, msg.Ack())
	assert.EqualValues(t, 0, pending(t, client))
}

func TestDefaultConsumer_Stable(t *testing.T) {
	assert.Equal(t, defaultConsumer(), defaultConsumer())
	client := newClient(t)
	queue := newTestQueue(t, client, Config{})
	assert.Equal(t, defaultConsumer(), queue.config.Consumer)
	assert.Equal(t, stream+":dlq", queue.config.DeadLetter)
}

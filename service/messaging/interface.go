package messaging

import (
	"context"
	"errors"
)

// Vendor represents the name of a messaging vendor
type Vendor string

const (
	// VendorMemory is an in-process channel queue.
	VendorMemory Vendor = "memory"
	// VendorFS is a directory queue shared by processes on one host.
	VendorFS Vendor = "fs"
	// VendorRedis is a Redis Streams consumer group.
	VendorRedis Vendor = "redis"
)

// Channel names used by the landing pipeline.
const (
	// IntakeChannel carries newly arrived landing requests.
	IntakeChannel = "landing_queue"
	// DispatchChannel carries requests admitted for runway allocation.
	DispatchChannel = "ready_for_landing"
)

// ErrAlreadyProcessed is returned when a message is acknowledged twice.
var ErrAlreadyProcessed = errors.New("message already processed")

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one is
	// available or ctx is done, in which case ctx.Err() is returned.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue. Every delivered message
// must receive exactly one Ack or Nack.
type Message[T any] interface {
	// ID returns the delivery identifier of this message
	ID() string

	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message; the message is redelivered later
	Nack(err error) error
}

// Closer is implemented by queues holding external resources.
type Closer interface {
	Close() error
}

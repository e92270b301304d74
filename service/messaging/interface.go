package messaging

import (
	"context"
)

// Queue is an abstract message queue over any payload type. The engine and
// the scheduler runner only depend on this contract, so queue backends can
// be swapped without touching either.
type Queue[T any] interface {
	// Publish adds a new message carrying the payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks for a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack reports a processing failure; the queue decides whether to
	// redeliver or dead-letter
	Nack(err error) error
}

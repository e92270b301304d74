package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/stepflow/internal/idgen"
	"github.com/viant/stepflow/service/messaging"
)

// Config for the in-memory queue
type Config struct {
	MaxRedeliveries int
	RedeliveryDelay time.Duration
	DeadLetter      bool
	Buffer          int
}

// DefaultConfig returns a standard in-memory queue configuration
func DefaultConfig() Config {
	return Config{
		MaxRedeliveries: 3,
		RedeliveryDelay: 100 * time.Millisecond,
		DeadLetter:      true,
		Buffer:          100,
	}
}

// Message implements messaging.Message backed by the in-memory queue
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	deliveries int
	mu         sync.Mutex
	settled    bool
	createdAt  time.Time
}

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack settles the message as successfully processed
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %v already settled", m.id)
	}
	m.settled = true
	return nil
}

// Nack settles the message as failed; under the redelivery limit the
// payload is requeued after the configured delay, otherwise it moves to the
// dead letter slice when enabled.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message %v already settled", m.id)
	}
	m.settled = true
	m.deliveries++

	if m.deliveries <= m.queue.config.MaxRedeliveries {
		go m.queue.redeliver(m)
		return nil
	}
	if m.queue.config.DeadLetter {
		m.queue.dlqMu.Lock()
		m.queue.dlq = append(m.queue.dlq, m)
		m.queue.dlqMu.Unlock()
	}
	return nil
}

// Queue is an in-memory messaging.Queue backed by a buffered channel
type Queue[T any] struct {
	messages chan *Message[T]
	dlq      []*Message[T]
	config   Config
	dlqMu    sync.Mutex
}

// NewQueue creates an in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.Buffer),
		config:   config,
	}
}

// Publish adds a payload to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
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

// Consume blocks for a single message
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue[T]) redeliver(m *Message[T]) {
	time.Sleep(q.config.RedeliveryDelay)
	next := &Message[T]{
		id:         m.id,
		payload:    m.payload,
		queue:      q,
		deliveries: m.deliveries,
		createdAt:  time.Now(),
	}
	q.messages <- next
}

// Size returns the number of messages waiting in the queue
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

// DLQSize returns the number of dead-lettered messages
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)

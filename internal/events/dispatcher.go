package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// ErrQueueFull is returned when the in-process queue cannot take more events.
var ErrQueueFull = errors.New("event queue full")

// Publisher enqueues creation events for asynchronous notification.
type Publisher interface {
	Publish(ctx context.Context, event TicketCreated) error
}

// Consumer delivers batches of queued messages. Messages stay pending until acknowledged,
// so a crashed consumer sees them again.
type Consumer interface {
	Receive(ctx context.Context, max int) ([]Message, error)
	Ack(ctx context.Context, ids ...string) error
}

// MemoryQueue is an in-process queue used when Redis is not configured and in tests.
type MemoryQueue struct {
	ch chan Message

	mu         sync.Mutex
	seq        int
	publishErr error
	acked      []string
}

// NewMemoryQueue creates a queue holding up to capacity undelivered events.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan Message, capacity)}
}

// FailPublish makes subsequent Publish calls return err. Pass nil to recover.
func (q *MemoryQueue) FailPublish(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.publishErr = err
}

// Publish enqueues the event without blocking.
func (q *MemoryQueue) Publish(ctx context.Context, event TicketCreated) error {
	body, err := event.Encode()
	if err != nil {
		return err
	}
	return q.PublishRaw(ctx, body)
}

// PublishRaw enqueues an already encoded body.
func (q *MemoryQueue) PublishRaw(ctx context.Context, body []byte) error {
	q.mu.Lock()
	if q.publishErr != nil {
		err := q.publishErr
		q.mu.Unlock()
		return err
	}
	q.seq++
	msg := Message{ID: strconv.Itoa(q.seq), Body: body}
	q.mu.Unlock()

	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Receive blocks until at least one message is available, then drains up to max.
func (q *MemoryQueue) Receive(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	var batch []Message
	select {
	case msg := <-q.ch:
		batch = append(batch, msg)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	for len(batch) < max {
		select {
		case msg := <-q.ch:
			batch = append(batch, msg)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

// Ack records acknowledged ids.
func (q *MemoryQueue) Ack(_ context.Context, ids ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, ids...)
	return nil
}

// Acked returns the acknowledged ids in order.
func (q *MemoryQueue) Acked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// Pending reports how many messages wait for delivery.
func (q *MemoryQueue) Pending() int {
	return len(q.ch)
}

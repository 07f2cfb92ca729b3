// internal/queue/queue.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned by the in-memory queue when a queue's buffer is
// exhausted. Enqueue never blocks on a full buffer.
var ErrQueueFull = errors.New("queue is full")

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("queue is closed")

// Producer hands payloads to a named queue. Delivery is at-least-once.
type Producer interface {
	Enqueue(ctx context.Context, queue string, payload []byte) error
}

// Handler processes one payload. Returning an error asks the transport to
// redeliver; returning nil acknowledges the message.
type Handler func(ctx context.Context, payload []byte) error

// Consumer runs h for every message on queue until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, queue string, h Handler) error
}

type Queue interface {
	Producer
	Consumer
	Close() error
}

// InMemoryQueue keeps one buffered channel per queue name and retries a
// failed handler a bounded number of times before dropping the job.
type InMemoryQueue struct {
	mu       sync.Mutex
	queues   map[string]chan job
	closed   bool
	capacity int

	MaxRetries int
	RetryDelay time.Duration
	Log        *slog.Logger
}

type job struct {
	payload    []byte
	retryCount int
}

// NewInMemoryQueue creates a queue whose per-name buffers hold capacity jobs.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{
		queues:     make(map[string]chan job),
		capacity:   capacity,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		Log:        slog.Default(),
	}
}

func (q *InMemoryQueue) channel(name string) (chan job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan job, q.capacity)
		q.queues[name] = ch
	}
	return ch, nil
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	ch, ok := q.queues[name]
	if !ok {
		ch = make(chan job, q.capacity)
		q.queues[name] = ch
	}

	body := append([]byte(nil), payload...)
	select {
	case ch <- job{payload: body}:
		return nil
	default:
		return fmt.Errorf("enqueue to %s: %w", name, ErrQueueFull)
	}
}

func (q *InMemoryQueue) Consume(ctx context.Context, name string, h Handler) error {
	ch, err := q.channel(name)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case j, ok := <-ch:
			if !ok {
				return nil
			}
			q.processJob(ctx, name, h, j)
		}
	}
}

// processJob retries with a linear backoff and gives up after MaxRetries.
func (q *InMemoryQueue) processJob(ctx context.Context, name string, h Handler, j job) {
	for {
		err := h(ctx, j.payload)
		if err == nil {
			return
		}

		j.retryCount++
		if j.retryCount > q.MaxRetries {
			q.Log.Error("job permanently failed", "queue", name, "attempts", j.retryCount, "error", err)
			return
		}
		q.Log.Warn("job failed, retrying", "queue", name, "attempt", j.retryCount, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(j.retryCount) * q.RetryDelay):
		}
	}
}

// Len reports how many jobs are buffered on a queue.
func (q *InMemoryQueue) Len(name string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[name])
}

// Drain removes and returns every buffered payload on a queue.
func (q *InMemoryQueue) Drain(name string) [][]byte {
	ch, err := q.channel(name)
	if err != nil {
		return nil
	}
	var out [][]byte
	for {
		select {
		case j := <-ch:
			out = append(out, j.payload)
		default:
			return out
		}
	}
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	for _, ch := range q.queues {
		close(ch)
	}
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)

// internal/queue/amqp.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// AMQPQueue publishes to and consumes from durable RabbitMQ queues through
// the default exchange. One connection is owned per process.
type AMQPQueue struct {
	conn     *amqp.Connection
	prefetch int
	log      *slog.Logger

	mu       sync.Mutex
	pub      *amqp.Channel
	declared map[string]bool
}

func DialAMQP(url string, prefetch int, log *slog.Logger) (*AMQPQueue, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	return &AMQPQueue{
		conn:     conn,
		prefetch: prefetch,
		log:      log,
		pub:      ch,
		declared: make(map[string]bool),
	}, nil
}

func declare(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

func (q *AMQPQueue) Enqueue(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// amqp.Channel is not safe for concurrent publishing.
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.declared[name] {
		if err := declare(q.pub, name); err != nil {
			return err
		}
		q.declared[name] = true
	}

	err := q.pub.Publish(
		"",
		name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         payload,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", name, err)
	}
	return nil
}

// Consume opens a dedicated channel with manual acks. A failed handler is
// requeued once; a redelivered message that fails again is dropped.
func (q *AMQPQueue) Consume(ctx context.Context, name string, h Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, name); err != nil {
		return err
	}
	if q.prefetch > 0 {
		if err := ch.Qos(q.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	msgs, err := ch.Consume(
		name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", name, err)
	}

	q.log.Info("consuming", "queue", name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			if err := h(ctx, d.Body); err != nil {
				q.log.Warn("handler failed", "queue", name, "message_id", d.MessageId, "redelivered", d.Redelivered, "error", err)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.pub.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		q.log.Warn("close publish channel", "error", err)
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)

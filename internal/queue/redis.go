// internal/queue/redis.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Group       string        // consumer group shared by all replicas
	Consumer    string        // this replica's consumer name
	Block       time.Duration // XREADGROUP block timeout
	BatchSize   int64
	MaxAttempts int // failed messages are re-added until this many attempts
}

// RedisQueue maps each queue name to a Redis stream read through a
// consumer group.
type RedisQueue struct {
	client *redis.Client
	cfg    RedisConfig
	log    *slog.Logger
}

func NewRedisQueue(client *redis.Client, cfg RedisConfig, log *slog.Logger) *RedisQueue {
	if log == nil {
		log = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &RedisQueue{client: client, cfg: cfg, log: log}
}

// DialRedis parses a redis:// URL and verifies the server is reachable.
func DialRedis(ctx context.Context, url string, cfg RedisConfig, log *slog.Logger) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisQueue(client, cfg, log), nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload []byte) error {
	return q.add(ctx, name, payload, 1)
}

func (q *RedisQueue) add(ctx context.Context, stream string, payload []byte, attempt int) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"msg_id":  uuid.NewString(),
			"payload": string(payload),
			"attempt": attempt,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

func (q *RedisQueue) ensureGroup(ctx context.Context, stream string) error {
	// Starting from "0" keeps messages added before the group existed.
	err := q.client.XGroupCreateMkStream(ctx, stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (q *RedisQueue) Consume(ctx context.Context, name string, h Handler) error {
	if err := q.ensureGroup(ctx, name); err != nil {
		return err
	}

	q.log.Info("consuming", "stream", name, "group", q.cfg.Group, "consumer", q.cfg.Consumer)
	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.cfg.Group,
			Consumer: q.cfg.Consumer,
			Streams:  []string{name, ">"},
			Count:    q.cfg.BatchSize,
			Block:    q.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("xreadgroup %s: %w", name, err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				q.handle(ctx, name, msg, h)
			}
		}
	}
}

func (q *RedisQueue) handle(ctx context.Context, stream string, msg redis.XMessage, h Handler) {
	payload := fmt.Sprint(msg.Values["payload"])
	attempt, _ := strconv.Atoi(fmt.Sprint(msg.Values["attempt"]))
	if attempt <= 0 {
		attempt = 1
	}

	herr := h(ctx, []byte(payload))
	if err := q.client.XAck(ctx, stream, q.cfg.Group, msg.ID).Err(); err != nil {
		q.log.Error("xack failed", "stream", stream, "id", msg.ID, "error", err)
		return
	}
	if herr == nil {
		return
	}

	if attempt >= q.cfg.MaxAttempts {
		q.log.Error("message dropped after max attempts", "stream", stream, "id", msg.ID, "attempt", attempt, "error", herr)
		return
	}
	if err := q.add(ctx, stream, []byte(payload), attempt+1); err != nil {
		q.log.Error("requeue failed", "stream", stream, "id", msg.ID, "error", err)
		return
	}
	q.log.Warn("message requeued", "stream", stream, "id", msg.ID, "next_attempt", attempt+1, "error", herr)
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

var _ Queue = (*RedisQueue)(nil)

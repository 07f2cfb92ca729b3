// internal/queue/open.go
package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unclebandit/audience-campaigns/internal/config"
)

// Open builds the transport selected by QUEUE_DRIVER.
func Open(ctx context.Context, cfg config.QueueConfig, log *slog.Logger) (Queue, error) {
	switch cfg.Driver {
	case config.QueueAMQP:
		return DialAMQP(cfg.AMQPURL, cfg.Prefetch, log)
	case config.QueueRedis:
		return DialRedis(ctx, cfg.RedisURL, RedisConfig{
			Group:     cfg.ConsumerGroup,
			Consumer:  cfg.ConsumerName,
			Block:     cfg.BlockTimeout,
			BatchSize: int64(cfg.Prefetch),
		}, log)
	case config.QueueMemory:
		q := NewInMemoryQueue(0)
		if log != nil {
			q.Log = log
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}

// Package scheduler provides delayed background work on asynq: the client
// enqueues tasks, the worker consumes them.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"salesops_backend/internal/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Client enqueues delayed tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates an asynq client from the application config.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleExpiry enqueues an expiry check for a quotation at the given time.
func (c *Client) ScheduleExpiry(ctx context.Context, quotationID uuid.UUID, at time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewQuotationExpireTask(QuotationExpirePayload{QuotationID: quotationID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(at), asynq.Queue(c.queue))
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"lead_router_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	retryBaseDelay = 30 * time.Second
	retryMaxDelay  = time.Hour
)

type Client struct {
	client *asynq.Client
	queue  string
}

// CRMRetryScheduler is the enqueue hook the dispatch path uses when a
// CRM push fails. Satisfied by Client; a nil *Client is a no-op, so
// the router runs without Redis in development.
type CRMRetryScheduler interface {
	ScheduleCRMPushRetry(ctx context.Context, payload CRMPushRetryPayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleCRMPushRetry enqueues a retry with exponential delay based
// on the attempt counter in the payload.
func (c *Client) ScheduleCRMPushRetry(ctx context.Context, payload CRMPushRetryPayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCRMPushRetryTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(retryDelay(payload.Attempt)),
		asynq.Queue(c.queue),
	)
	return err
}

// retryDelay doubles per attempt from the base, capped at the maximum.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := retryBaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			return retryMaxDelay
		}
	}
	return delay
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

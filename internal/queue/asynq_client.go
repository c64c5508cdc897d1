package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	defaultAsynqMaxRetry = 5
	defaultAsynqTimeout  = 5 * time.Minute
)

// RedisOptions locates the Redis instance backing asynq.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// ClientOpt converts the options for asynq clients and servers.
func (o RedisOptions) ClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     o.Addr,
		Password: o.Password,
		DB:       o.DB,
	}
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// AsynqClient enqueues analysis jobs on a Redis-backed asynq queue.
type AsynqClient struct {
	client   enqueuer
	maxRetry int
	timeout  time.Duration
}

// NewAsynqClient constructs an asynq-backed queue client.
func NewAsynqClient(opts RedisOptions) *AsynqClient {
	return &AsynqClient{
		client:   asynq.NewClient(opts.ClientOpt()),
		maxRetry: defaultAsynqMaxRetry,
		timeout:  defaultAsynqTimeout,
	}
}

// Send enqueues msg as a TaskTypeAnalyze task.
func (c *AsynqClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode asynq payload: %w", err)
	}
	task := asynq.NewTask(TaskTypeAnalyze, payload)
	if _, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(c.maxRetry), asynq.Timeout(c.timeout)); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskTypeAnalyze, err)
	}
	return nil
}

func (c *AsynqClient) Close() error {
	return c.client.Close()
}

var _ Client = (*AsynqClient)(nil)

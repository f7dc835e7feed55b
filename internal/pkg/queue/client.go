package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerly/reportflow/internal/pkg/config"
)

const (
	TypeEmailSend = "email:send"
)

const (
	QueueEmails  = "emails"
	QueueDefault = "default"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg *config.RedisConfig) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Client{client: client}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue marshals payload as JSON and submits a task of the given type.
func (c *Client) Enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	defaults := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(30 * time.Second),
		asynq.Retention(24 * time.Hour),
	}

	task := asynq.NewTask(taskType, data, append(defaults, opts...)...)
	return c.client.EnqueueContext(ctx, task)
}

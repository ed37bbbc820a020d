package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/timedealhq/creditbot/internal/config"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg *config.RedisConfig, log *logger.Logger) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	return &Client{
		client: asynq.NewClient(redisOpt),
		logger: log.With("component", "job_client"),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRankReset enqueues a bulk rank reset sweep and returns the run
// id the sweep will report progress under.
func (c *Client) EnqueueRankReset(ctx context.Context, targetRoleID int64) (string, error) {
	runID := uuid.NewString()

	task, err := NewRankResetTask(RankResetPayload{
		RunID:        runID,
		TargetRoleID: targetRoleID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue rank reset sweep",
			"target_role_id", targetRoleID,
			"error", err,
		)
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("rank reset sweep queued",
		"task_id", info.ID,
		"run_id", runID,
		"target_role_id", targetRoleID,
		"queue", info.Queue,
	)
	return runID, nil
}

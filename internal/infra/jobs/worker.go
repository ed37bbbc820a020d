package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/timedealhq/creditbot/internal/app"
	"github.com/timedealhq/creditbot/internal/config"
	"github.com/timedealhq/creditbot/pkg/logger"
)

// Worker processes background jobs.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logger.Logger
}

// NewWorker creates a new background job worker.
func NewWorker(redisCfg *config.RedisConfig, workerCfg *config.WorkerConfig, ranks *app.RankService, log *logger.Logger) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		},
		asynq.Config{
			Concurrency: workerCfg.Concurrency,
			Queues: map[string]int{
				sweepQueue: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	handler := &rankResetHandler{ranks: ranks, logger: log.With("component", "sweep_worker")}
	mux.HandleFunc(TypeRankResetAll, handler.Handle)

	return &Worker{
		server: server,
		mux:    mux,
		logger: log,
	}
}

// Run runs the worker until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.logger.Info("stopping job worker")
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

type rankResetHandler struct {
	ranks  *app.RankService
	logger *logger.Logger
}

// Handle drives one bulk reset sweep. The sweep's own report carries
// partial-failure accounting; an abort surfaces as a task error, which
// is terminal because sweeps enqueue with no retries.
func (h *rankResetHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RankResetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal rank reset payload: %w", err)
	}

	h.logger.Info("rank reset sweep starting",
		"run_id", payload.RunID,
		"target_role_id", payload.TargetRoleID,
	)

	_, err := h.ranks.BulkResetAll(ctx, payload.TargetRoleID, payload.RunID)
	return err
}

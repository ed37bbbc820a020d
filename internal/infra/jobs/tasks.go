// Package jobs runs the bulk rank reset sweep as a background task
// using Asynq.
package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeRankResetAll is the task type for a bulk rank reset sweep.
const TypeRankResetAll = "rank:reset_all"

// sweepQueue isolates sweeps from any future task types.
const sweepQueue = "sweeps"

// RankResetPayload is the payload of a bulk reset task.
type RankResetPayload struct {
	RunID        string `json:"run_id"`
	TargetRoleID int64  `json:"target_role_id"`
}

// NewRankResetTask builds an Asynq task for a bulk reset. Sweeps are
// never retried automatically; an aborted sweep stays aborted.
func NewRankResetTask(payload RankResetPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rank reset payload: %w", err)
	}
	return asynq.NewTask(TypeRankResetAll, data,
		asynq.Queue(sweepQueue),
		asynq.MaxRetry(0),
	), nil
}

package group

import "time"

// SweepStatus is the lifecycle state of a bulk reset sweep.
type SweepStatus string

// Sweep states.
const (
	SweepRunning   SweepStatus = "running"
	SweepCompleted SweepStatus = "completed"
	SweepAborted   SweepStatus = "aborted"
)

// SweepReport is the accumulated result of a bulk rank reset. A sweep
// with a nonzero Failed count is a normal completion, not an error; only
// a page-fetch failure aborts the run.
type SweepReport struct {
	RunID        string      `json:"run_id"`
	TargetRoleID int64       `json:"target_role_id"`
	Status       SweepStatus `json:"status"`
	Scanned      int         `json:"scanned"`
	Changed      int         `json:"changed"`
	Failed       int         `json:"failed"`
	AbortReason  string      `json:"abort_reason,omitempty"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   *time.Time  `json:"finished_at,omitempty"`
}

package domain

import "time"

// RunStatus is the run manager's (C11) point-in-time view of one issue
// run: the active phase, the wave of tasks currently selected by the
// scheduler, and aggregate cost/token counters surfaced to the boundary
// API's status command.
type RunStatus struct {
	RunID         string     `json:"run_id"`
	IssueRef      IssueRef   `json:"issue_ref"`
	Phase         string     `json:"phase"`
	ActiveTaskIDs []string   `json:"active_task_ids"`
	StartedAt     time.Time  `json:"started_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`

	TotalTokensUsed int     `json:"total_tokens_used"`
	TotalCostUSD    float64 `json:"total_cost_usd"`

	CompletionReason string `json:"completion_reason,omitempty"` // "workflow_completed" | "cancelled" | "failed"
}

// IsActive reports whether the run has not yet finished.
func (r RunStatus) IsActive() bool { return r.FinishedAt == nil }

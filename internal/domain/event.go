package domain

import "time"

// EventEnvelope is the unit of data the event hub (C10) fans out to live
// subscribers (SSE, websocket) and the unit the output writer (C9) and run
// manager (C11) publish as work happens.
type EventEnvelope struct {
	EventID   string         `json:"event_id"`
	IssueRef  IssueRef       `json:"issue_ref"`
	RunID     string         `json:"run_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Type      string         `json:"type"` // see EventType* constants
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

const (
	EventTypePhaseEntered    = "phase_entered"
	EventTypeTaskScheduled   = "task_scheduled"
	EventTypeTaskProgress    = "task_progress"
	EventTypeTaskCompleted   = "task_completed"
	EventTypeTaskFailed      = "task_failed"
	EventTypeRunStarted      = "run_started"
	EventTypeRunProgress     = "run_progress"
	EventTypeRunFinished     = "run_finished"
	EventTypeReconcileResult = "reconcile_result"
)

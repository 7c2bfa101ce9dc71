package domain

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of a scheduled task within a run.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskBlocked   TaskStatus = "blocked" // waiting on DependsOn
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// IsTerminal reports whether the status is a final state.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskCancelled:
		return true
	default:
		return false
	}
}

// TerminationReason explains why a task reached a terminal state.
type TerminationReason string

const (
	TerminationNone      TerminationReason = ""
	TerminationCompleted TerminationReason = "completed"
	TerminationCancelled TerminationReason = "cancelled"
	TerminationTimeout   TerminationReason = "timeout"
	TerminationError     TerminationReason = "error"
)

// Task is one unit of work the scheduler (C7) may select for execution
// inside a run. DependsOn names sibling task ids within the same task
// list; the scheduler treats duplicate entries as a single dependency.
type Task struct {
	TaskID      string   `json:"task_id"`
	IssueRef    IssueRef `json:"issue_ref"`
	RunID       string   `json:"run_id"`
	Description string   `json:"description"`
	Prompt      string   `json:"prompt,omitempty"`

	ProviderKind string          `json:"provider_kind"` // "claude_code" | "codex" | "script"
	Config       json.RawMessage `json:"config,omitempty"`

	Status            TaskStatus        `json:"status"`
	TerminationReason TerminationReason `json:"termination_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Iterations int     `json:"iterations"`
	TokensUsed int     `json:"tokens_used"`
	CostUSD    float64 `json:"cost_usd,omitempty"`

	AnswerPreview string `json:"answer_preview,omitempty"`
	Error         string `json:"error,omitempty"`

	DependsOn []string `json:"depends_on,omitempty"`

	PID        int    `json:"pid,omitempty"`
	OutputFile string `json:"output_file,omitempty"`
}

// DependencySet normalizes DependsOn into a deduplicated set, per the
// invariant that repeated entries collapse to a single edge for DAG
// validation and scheduling.
func (t Task) DependencySet() map[string]struct{} {
	out := make(map[string]struct{}, len(t.DependsOn))
	for _, id := range t.DependsOn {
		out[id] = struct{}{}
	}
	return out
}

// Transition records one task status change for the audit trail.
type Transition struct {
	ID         int64          `json:"id"`
	TaskID     string         `json:"task_id"`
	FromStatus TaskStatus     `json:"from_status"`
	ToStatus   TaskStatus     `json:"to_status"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// TransitionParams holds the optional fields a SetStatus call may update
// alongside the status itself.
type TransitionParams struct {
	Reason        string
	Metadata      map[string]any
	AnswerPreview *string
	ErrorText     *string
	TokensUsed    *int
}

// TransitionOption customises a SetStatus call. Grounded in the
// functional-options pattern used for task transitions elsewhere in this
// codebase's lineage: it keeps the Store.SetStatus signature stable while
// letting callers attach only the fields relevant to their transition.
type TransitionOption func(*TransitionParams)

func WithTransitionReason(reason string) TransitionOption {
	return func(p *TransitionParams) { p.Reason = reason }
}

func WithTransitionMeta(meta map[string]any) TransitionOption {
	return func(p *TransitionParams) { p.Metadata = meta }
}

func WithTransitionAnswerPreview(preview string) TransitionOption {
	return func(p *TransitionParams) { p.AnswerPreview = &preview }
}

func WithTransitionError(errText string) TransitionOption {
	return func(p *TransitionParams) { p.ErrorText = &errText }
}

func WithTransitionTokens(tokens int) TransitionOption {
	return func(p *TransitionParams) { p.TokensUsed = &tokens }
}

// ApplyTransitionOptions collects all options into a TransitionParams.
func ApplyTransitionOptions(opts []TransitionOption) TransitionParams {
	var p TransitionParams
	for _, fn := range opts {
		fn(&p)
	}
	return p
}

// Package domain holds the data model shared across every jeeves
// component: issues, tasks, memory entries, managed files, run status, and
// the event envelope. It is a leaf package — it imports nothing from the
// rest of the module so every other package can depend on it without risk
// of a cycle.
package domain

import "time"

// IssueRef identifies one GitHub-style issue this instance is driving work
// against.
type IssueRef struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// String renders the canonical "owner/repo#number" form used in logs and
// in the issue state directory's legacy path fallback.
func (r IssueRef) String() string {
	return r.Owner + "/" + r.Repo + "#" + itoa(r.Number)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// IssueState is the durable, per-issue lifecycle record. Status is an
// open-schema bag (map[string]any) rather than a fixed struct: guard
// expressions (internal/guard) address arbitrary dotted paths into it, and
// phases may stash provider-specific fields there without a schema
// migration. Well-known sub-paths (e.g. "parallel.runId") get typed
// accessor helpers below instead of dedicated struct fields.
type IssueState struct {
	Issue        IssueRef       `json:"issue"`
	Phase        string         `json:"phase"`
	Status       map[string]any `json:"status"`
	WorktreePath string         `json:"worktree_path,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RunID returns the active run id recorded under "parallel.runId", or ""
// if none is set.
func (s IssueState) RunID() string {
	parallel, ok := s.Status["parallel"].(map[string]any)
	if !ok {
		return ""
	}
	runID, _ := parallel["runId"].(string)
	return runID
}

// SetRunID records the active run id under "parallel.runId", creating the
// parent map if necessary.
func (s *IssueState) SetRunID(runID string) {
	if s.Status == nil {
		s.Status = map[string]any{}
	}
	parallel, ok := s.Status["parallel"].(map[string]any)
	if !ok {
		parallel = map[string]any{}
		s.Status["parallel"] = parallel
	}
	parallel["runId"] = runID
}

// ClearRunID removes "parallel.runId", marking no run active for this issue.
func (s *IssueState) ClearRunID() {
	if parallel, ok := s.Status["parallel"].(map[string]any); ok {
		delete(parallel, "runId")
	}
}

package domain

import "time"

// MemoryEntry is one append-only note the issue lifecycle core (C12)
// records against an issue — a trajectory reflection, a human comment
// import, an operator annotation. Memory is never mutated after write,
// only appended and read back in order.
type MemoryEntry struct {
	ID        string    `json:"id"`
	IssueRef  IssueRef  `json:"issue_ref"`
	Kind      string    `json:"kind"` // "reflection" | "comment" | "annotation"
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ManagedFile describes one file the projected-file reconciler (C13)
// mirrors from the repo's canonical location into an issue's worktree (or
// vice versa).
type ManagedFile struct {
	RelPath     string     `json:"rel_path"`
	SourceSHA   string     `json:"source_sha,omitempty"`
	WorktreeSHA string     `json:"worktree_sha,omitempty"`
	SyncStatus  SyncStatus `json:"sync_status"`
	CheckedAt   time.Time  `json:"checked_at"`
}

// SyncStatus describes the reconciliation state of one managed file.
type SyncStatus string

const (
	SyncInSync     SyncStatus = "in_sync"
	SyncStale      SyncStatus = "stale"      // worktree copy older than source
	SyncConflict   SyncStatus = "conflict"   // both sides changed since last sync
	SyncMissing    SyncStatus = "missing"    // source or destination absent
	SyncReconciled SyncStatus = "reconciled"
)

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	jerrors "jeeves/internal/errors"
)

// IssueSummary is one row of list_issues's ordered result.
type IssueSummary struct {
	Owner       string
	Repo        string
	IssueNumber int
	Phase       string
	Workflow    string
	Branch      string
}

// WriteIssue atomically upserts the opaque status payload for stateDir, with
// updated_at_ms monotonic per state_dir across successful writes. Concurrent
// writers to the same stateDir are serialised through the store's per-key
// lock.
func (s *Store) WriteIssue(ctx context.Context, stateDir, issueID string, status map[string]any, nowMS int64) error {
	lock := s.lockFor(stateDir)
	lock.Lock()
	defer lock.Unlock()

	statusJSON, err := json.Marshal(status)
	if err != nil {
		return jerrors.Wrap(jerrors.KindValidation, "store.WriteIssue", err)
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var prevMS int64
		err := tx.QueryRowContext(ctx, `SELECT updated_at_ms FROM issue_state_core WHERE state_dir = ?`, stateDir).Scan(&prevMS)
		if err != nil && err != sql.ErrNoRows {
			return jerrors.Wrap(jerrors.KindIO, "store.WriteIssue", err)
		}
		if nowMS <= prevMS {
			nowMS = prevMS + 1 // preserve the monotonic contract even under a stalled clock
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO issue_state_core (state_dir, issue_id, status_json, updated_at_ms)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (state_dir) DO UPDATE SET
				issue_id = excluded.issue_id,
				status_json = excluded.status_json,
				updated_at_ms = excluded.updated_at_ms
		`, stateDir, issueID, string(statusJSON), nowMS)
		if err != nil {
			return jerrors.Wrap(jerrors.KindIO, "store.WriteIssue", err)
		}
		return nil
	})
}

// IssueCoreRow is the exact payload last written for a state_dir.
type IssueCoreRow struct {
	IssueID     string
	Status      map[string]any
	UpdatedAtMS int64
}

// ReadIssue returns the payload exactly as last written, or (nil, nil) if no
// row exists for stateDir — reads never error on a missing row.
func (s *Store) ReadIssue(ctx context.Context, stateDir string) (*IssueCoreRow, error) {
	var issueID, statusJSON string
	var updatedAtMS int64
	err := s.db.QueryRowContext(ctx, `SELECT issue_id, status_json, updated_at_ms FROM issue_state_core WHERE state_dir = ?`, stateDir).
		Scan(&issueID, &statusJSON, &updatedAtMS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadIssue", err)
	}
	var status map[string]any
	if err := json.Unmarshal([]byte(statusJSON), &status); err != nil {
		return nil, jerrors.Wrap(jerrors.KindInternal, "store.ReadIssue", err)
	}
	return &IssueCoreRow{IssueID: issueID, Status: status, UpdatedAtMS: updatedAtMS}, nil
}

// UpsertRepositoryIssue records or updates the repository_issues summary row
// used by ListIssues.
func (s *Store) UpsertRepositoryIssue(ctx context.Context, owner, repo string, issueNumber int, title, branch, phase, workflow string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		var repoID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO repositories (owner, repo) VALUES (?, ?)
			ON CONFLICT (owner, repo) DO UPDATE SET owner = excluded.owner
			RETURNING id
		`, owner, repo).Scan(&repoID)
		if err != nil {
			return jerrors.Wrap(jerrors.KindIO, "store.UpsertRepositoryIssue", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO repository_issues (repository_id, issue_number, issue_title, branch, phase, workflow)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (repository_id, issue_number) DO UPDATE SET
				issue_title = excluded.issue_title,
				branch = excluded.branch,
				phase = excluded.phase,
				workflow = excluded.workflow
		`, repoID, issueNumber, title, branch, phase, workflow)
		if err != nil {
			return jerrors.Wrap(jerrors.KindIO, "store.UpsertRepositoryIssue", err)
		}
		return nil
	})
}

// ListIssues returns a summary ordered by (owner, repo, issue_number).
func (s *Store) ListIssues(ctx context.Context) ([]IssueSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.owner, r.repo, ri.issue_number, ri.phase, ri.workflow, ri.branch
		FROM repository_issues ri
		JOIN repositories r ON r.id = ri.repository_id
		ORDER BY r.owner, r.repo, ri.issue_number
	`)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ListIssues", err)
	}
	defer rows.Close()

	var out []IssueSummary
	for rows.Next() {
		var sum IssueSummary
		if err := rows.Scan(&sum.Owner, &sum.Repo, &sum.IssueNumber, &sum.Phase, &sum.Workflow, &sum.Branch); err != nil {
			return nil, jerrors.Wrap(jerrors.KindIO, "store.ListIssues", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ListIssues", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		if out[i].Repo != out[j].Repo {
			return out[i].Repo < out[j].Repo
		}
		return out[i].IssueNumber < out[j].IssueNumber
	})
	return out, nil
}

// BootstrapIssueIfEmpty imports a legacy issue.json payload for stateDir iff
// the store holds no row for that key yet, then records a marker so the
// import never repeats.
func (s *Store) BootstrapIssueIfEmpty(ctx context.Context, stateDir, issueID string, legacyStatus map[string]any, nowMS int64) (imported bool, err error) {
	done, err := s.bootstrapMarked(ctx, stateDir, "issue")
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	existing, err := s.ReadIssue(ctx, stateDir)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, s.markBootstrap(ctx, stateDir, "issue")
	}
	if err := s.WriteIssue(ctx, stateDir, issueID, legacyStatus, nowMS); err != nil {
		return false, err
	}
	return true, s.markBootstrap(ctx, stateDir, "issue")
}

func (s *Store) bootstrapMarked(ctx context.Context, stateDir, kind string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM bootstrap_markers WHERE state_dir = ? AND kind = ?`, stateDir, kind).Scan(&count)
	if err != nil {
		return false, jerrors.Wrap(jerrors.KindIO, "store.bootstrapMarked", err)
	}
	return count > 0, nil
}

func (s *Store) markBootstrap(ctx context.Context, stateDir, kind string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO bootstrap_markers (state_dir, kind) VALUES (?, ?)`, stateDir, kind)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.markBootstrap", err)
	}
	return nil
}

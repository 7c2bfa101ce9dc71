package store

import (
	"context"
	"database/sql"

	jerrors "jeeves/internal/errors"
)

// SetActiveIssue records the data root's currently selected issue. One row
// per dataDir: a later call replaces the prior pointer outright.
func (s *Store) SetActiveIssue(ctx context.Context, dataDir, issueRef string, nowMS int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_issue (data_dir, issue_ref, saved_at) VALUES (?, ?, ?)
		ON CONFLICT (data_dir) DO UPDATE SET issue_ref = excluded.issue_ref, saved_at = excluded.saved_at
	`, dataDir, issueRef, nowMS)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.SetActiveIssue", err)
	}
	return nil
}

// ClearActiveIssue removes dataDir's active-issue pointer.
func (s *Store) ClearActiveIssue(ctx context.Context, dataDir string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM active_issue WHERE data_dir = ?`, dataDir)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.ClearActiveIssue", err)
	}
	return nil
}

// ActiveIssue returns the current active issue ref for dataDir, or
// ("", false, nil) if none is set.
func (s *Store) ActiveIssue(ctx context.Context, dataDir string) (issueRef string, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT issue_ref FROM active_issue WHERE data_dir = ?`, dataDir).Scan(&issueRef)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, jerrors.Wrap(jerrors.KindIO, "store.ActiveIssue", err)
	}
	return issueRef, true, nil
}

// BootstrapActiveIssueIfEmpty imports a legacy active-issue.json pointer
// for dataDir iff the store holds no active-issue row for it yet, then
// records a marker so the import never repeats.
func (s *Store) BootstrapActiveIssueIfEmpty(ctx context.Context, dataDir, legacyRef string, nowMS int64) (imported bool, err error) {
	done, err := s.bootstrapMarked(ctx, dataDir, "active_issue")
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	_, found, err := s.ActiveIssue(ctx, dataDir)
	if err != nil {
		return false, err
	}
	if found {
		return false, s.markBootstrap(ctx, dataDir, "active_issue")
	}
	if err := s.SetActiveIssue(ctx, dataDir, legacyRef, nowMS); err != nil {
		return false, err
	}
	return true, s.markBootstrap(ctx, dataDir, "active_issue")
}

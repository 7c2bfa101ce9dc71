package store

import (
	"context"
	"encoding/json"

	jerrors "jeeves/internal/errors"
)

// MemoryRow is one issue_memory entry: a scoped key/value fact carried
// across phases and iterations.
type MemoryRow struct {
	Scope           string
	Key             string
	Value           any
	SourceIteration int
	Stale           bool
	CreatedAt       int64
	UpdatedAt       int64
}

// UpsertMemory writes or replaces the (stateDir, scope, key) memory entry.
func (s *Store) UpsertMemory(ctx context.Context, stateDir, scope, key string, value any, sourceIteration int, nowMS int64) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return jerrors.Wrap(jerrors.KindValidation, "store.UpsertMemory", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO issue_memory (state_dir, scope, key, value_json, source_iteration, stale, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT (state_dir, scope, key) DO UPDATE SET
			value_json = excluded.value_json,
			source_iteration = excluded.source_iteration,
			stale = 0,
			updated_at = excluded.updated_at
	`, stateDir, scope, key, string(valueJSON), sourceIteration, nowMS, nowMS)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.UpsertMemory", err)
	}
	return nil
}

// MarkMemoryStale flags every entry for (stateDir, scope) as stale without
// deleting it, so readers can distinguish "superseded" from "absent".
func (s *Store) MarkMemoryStale(ctx context.Context, stateDir, scope string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE issue_memory SET stale = 1 WHERE state_dir = ? AND scope = ?`, stateDir, scope)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.MarkMemoryStale", err)
	}
	return nil
}

// ListMemory returns every memory row for stateDir, optionally filtered to
// a single scope when scope is non-empty.
func (s *Store) ListMemory(ctx context.Context, stateDir, scope string) ([]MemoryRow, error) {
	query := `SELECT scope, key, value_json, source_iteration, stale, created_at, updated_at FROM issue_memory WHERE state_dir = ?`
	args := []any{stateDir}
	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY scope, key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ListMemory", err)
	}
	defer rows.Close()

	var out []MemoryRow
	for rows.Next() {
		var row MemoryRow
		var valueJSON string
		var stale int
		if err := rows.Scan(&row.Scope, &row.Key, &valueJSON, &row.SourceIteration, &stale, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, jerrors.Wrap(jerrors.KindIO, "store.ListMemory", err)
		}
		if err := json.Unmarshal([]byte(valueJSON), &row.Value); err != nil {
			return nil, jerrors.Wrap(jerrors.KindInternal, "store.ListMemory", err)
		}
		row.Stale = stale != 0
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ListMemory", err)
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"

	jerrors "jeeves/internal/errors"
)

// TaskFileItem is one entry of the tasks_file payload passed to WriteTasks.
type TaskFileItem struct {
	TaskID    string
	Title     string
	Summary   string
	Status    string
	DependsOn []string // preserves source multiplicity; scheduler treats as a set
}

// WriteTasks replaces all items and dependencies for stateDir in a single
// transaction and computes task_count from the item list.
func (s *Store) WriteTasks(ctx context.Context, stateDir string, tasksSplit bool, items []TaskFileItem, extra map[string]any) error {
	lock := s.lockFor(stateDir)
	lock.Lock()
	defer lock.Unlock()

	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return jerrors.Wrap(jerrors.KindValidation, "store.WriteTasks", err)
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM issue_task_items WHERE state_dir = ?`, stateDir); err != nil {
			return jerrors.Wrap(jerrors.KindIO, "store.WriteTasks", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM issue_task_dependencies WHERE state_dir = ?`, stateDir); err != nil {
			return jerrors.Wrap(jerrors.KindIO, "store.WriteTasks", err)
		}
		for idx, item := range items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO issue_task_items (state_dir, task_index, task_id, title, summary, status)
				VALUES (?, ?, ?, ?, ?, ?)
			`, stateDir, idx, item.TaskID, item.Title, item.Summary, item.Status); err != nil {
				return jerrors.Wrap(jerrors.KindIO, "store.WriteTasks", err)
			}
			for _, dep := range item.DependsOn {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO issue_task_dependencies (state_dir, task_index, depends_on_task_id)
					VALUES (?, ?, ?)
				`, stateDir, idx, dep); err != nil {
					return jerrors.Wrap(jerrors.KindIO, "store.WriteTasks", err)
				}
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO issue_task_lists (state_dir, tasks_split, task_count, extra_json)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (state_dir) DO UPDATE SET
				tasks_split = excluded.tasks_split,
				task_count = excluded.task_count,
				extra_json = excluded.extra_json
		`, stateDir, tasksSplit, len(items), string(extraJSON))
		if err != nil {
			return jerrors.Wrap(jerrors.KindIO, "store.WriteTasks", err)
		}
		return nil
	})
}

// BootstrapTasksIfEmpty imports a legacy tasks.json payload for stateDir
// iff the store holds no task rows for that key yet, then records a
// marker so the import never repeats.
func (s *Store) BootstrapTasksIfEmpty(ctx context.Context, stateDir string, tasksSplit bool, items []TaskFileItem, extra map[string]any) (imported bool, err error) {
	done, err := s.bootstrapMarked(ctx, stateDir, "tasks")
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	existing, err := s.ReadTasks(ctx, stateDir)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, s.markBootstrap(ctx, stateDir, "tasks")
	}
	if err := s.WriteTasks(ctx, stateDir, tasksSplit, items, extra); err != nil {
		return false, err
	}
	return true, s.markBootstrap(ctx, stateDir, "tasks")
}

// ReadTasks returns the task items for stateDir in task_index order, with
// each item's DependsOn populated from issue_task_dependencies.
func (s *Store) ReadTasks(ctx context.Context, stateDir string) ([]TaskFileItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_index, task_id, title, summary, status
		FROM issue_task_items
		WHERE state_dir = ?
		ORDER BY task_index
	`, stateDir)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadTasks", err)
	}
	defer rows.Close()

	type indexed struct {
		item  TaskFileItem
		index int
	}
	var ordered []indexed
	for rows.Next() {
		var idx int
		var it TaskFileItem
		if err := rows.Scan(&idx, &it.TaskID, &it.Title, &it.Summary, &it.Status); err != nil {
			return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadTasks", err)
		}
		ordered = append(ordered, indexed{item: it, index: idx})
	}
	if err := rows.Err(); err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadTasks", err)
	}

	depRows, err := s.db.QueryContext(ctx, `
		SELECT task_index, depends_on_task_id FROM issue_task_dependencies WHERE state_dir = ? ORDER BY task_index
	`, stateDir)
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadTasks", err)
	}
	defer depRows.Close()
	depsByIndex := map[int][]string{}
	for depRows.Next() {
		var idx int
		var dep string
		if err := depRows.Scan(&idx, &dep); err != nil {
			return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadTasks", err)
		}
		depsByIndex[idx] = append(depsByIndex[idx], dep)
	}
	if err := depRows.Err(); err != nil {
		return nil, jerrors.Wrap(jerrors.KindIO, "store.ReadTasks", err)
	}

	out := make([]TaskFileItem, len(ordered))
	for i, e := range ordered {
		e.item.DependsOn = depsByIndex[e.index]
		out[i] = e.item
	}
	return out, nil
}

package issue

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"jeeves/internal/domain"
	"jeeves/internal/store"
)

// legacyTasksFile is the on-disk shape of a pre-store tasks.json document.
type legacyTasksFile struct {
	TasksSplit bool `json:"tasks_split"`
	Tasks      []struct {
		TaskID    string   `json:"task_id"`
		Title     string   `json:"title"`
		Summary   string   `json:"summary"`
		Status    string   `json:"status"`
		DependsOn []string `json:"depends_on"`
	} `json:"tasks"`
}

// bootstrapLegacy imports ref's legacy issue.json/tasks.json off disk into
// the store on first use (spec'd one-shot bootstrap): a file that doesn't
// exist, or doesn't parse, is silently skipped rather than treated as an
// error, since the store is the source of truth for every issue that has
// already been touched since the migration to sqlite.
func (s *Service) bootstrapLegacy(ctx context.Context, ref domain.IssueRef, stateDir string) error {
	nowMS := time.Now().UnixMilli()

	if raw, err := os.ReadFile(s.layout.LegacyIssueJSON(ref)); err == nil {
		var payload map[string]any
		if json.Unmarshal(raw, &payload) == nil {
			if phase, ok := payload["phase"].(string); ok {
				delete(payload, "phase")
				payload["__phase"] = phase
			}
			if _, err := s.store.BootstrapIssueIfEmpty(ctx, stateDir, ref.String(), payload, nowMS); err != nil {
				return err
			}
		}
	}

	if raw, err := os.ReadFile(s.layout.LegacyTasksJSON(ref)); err == nil {
		var legacy legacyTasksFile
		if json.Unmarshal(raw, &legacy) == nil {
			items := make([]store.TaskFileItem, len(legacy.Tasks))
			for i, t := range legacy.Tasks {
				items[i] = store.TaskFileItem{
					TaskID:    t.TaskID,
					Title:     t.Title,
					Summary:   t.Summary,
					Status:    t.Status,
					DependsOn: t.DependsOn,
				}
			}
			if _, err := s.store.BootstrapTasksIfEmpty(ctx, stateDir, legacy.TasksSplit, items, nil); err != nil {
				return err
			}
		}
	}

	return nil
}

package store

import (
	"context"
	"database/sql"

	jerrors "jeeves/internal/errors"
)

// UpsertPrompt stores a named prompt body and its content hash.
func (s *Store) UpsertPrompt(ctx context.Context, id, body, sha string, nowMS int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_prompts (id, body, sha, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET body = excluded.body, sha = excluded.sha, updated_at = excluded.updated_at
	`, id, body, sha, nowMS)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.UpsertPrompt", err)
	}
	return nil
}

// ReadPrompt returns a prompt's body, or ("", false, nil) if absent.
func (s *Store) ReadPrompt(ctx context.Context, id string) (body string, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT body FROM content_prompts WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, jerrors.Wrap(jerrors.KindIO, "store.ReadPrompt", err)
	}
	return body, true, nil
}

// UpsertWorkflowContent stores a named workflow's raw YAML alongside its
// parsed JSON representation, so readers can serve either without
// re-parsing on every request. The in-memory cache is refreshed in step
// so a subsequent ReadWorkflowContent never serves a stale entry.
func (s *Store) UpsertWorkflowContent(ctx context.Context, name, yamlDoc, parsedJSON string, nowMS int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_workflows (name, yaml, parsed_json, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET yaml = excluded.yaml, parsed_json = excluded.parsed_json, updated_at = excluded.updated_at
	`, name, yamlDoc, parsedJSON, nowMS)
	if err != nil {
		return jerrors.Wrap(jerrors.KindIO, "store.UpsertWorkflowContent", err)
	}
	s.workflowCache.Add(name, workflowContentEntry{yamlDoc: yamlDoc, parsedJSON: parsedJSON})
	return nil
}

// ReadWorkflowContent returns a workflow's raw YAML and parsed JSON, or
// ("", "", false, nil) if absent. A hit in the LRU cache skips the sqlite
// round trip entirely; a miss falls through to the database and populates
// the cache for next time.
func (s *Store) ReadWorkflowContent(ctx context.Context, name string) (yamlDoc, parsedJSON string, found bool, err error) {
	if cached, ok := s.workflowCache.Get(name); ok {
		return cached.yamlDoc, cached.parsedJSON, true, nil
	}
	err = s.db.QueryRowContext(ctx, `SELECT yaml, parsed_json FROM content_workflows WHERE name = ?`, name).Scan(&yamlDoc, &parsedJSON)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, jerrors.Wrap(jerrors.KindIO, "store.ReadWorkflowContent", err)
	}
	s.workflowCache.Add(name, workflowContentEntry{yamlDoc: yamlDoc, parsedJSON: parsedJSON})
	return yamlDoc, parsedJSON, true, nil
}

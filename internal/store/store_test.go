package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "jeeves.db")
	s, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteIssueThenReadIssueRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WriteIssue(ctx, "/wt/.jeeves", "acme/widget#1", map[string]any{"phase": "build"}, 100)
	require.NoError(t, err)

	row, err := s.ReadIssue(ctx, "/wt/.jeeves")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "acme/widget#1", row.IssueID)
	assert.Equal(t, "build", row.Status["phase"])
	assert.Equal(t, int64(100), row.UpdatedAtMS)
}

func TestReadIssueMissingReturnsNilNil(t *testing.T) {
	s := openTestStore(t)
	row, err := s.ReadIssue(context.Background(), "/nope")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestWriteIssueUpdatedAtIsMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteIssue(ctx, "/wt/.jeeves", "a#1", map[string]any{"phase": "a"}, 500))
	// A second write with an earlier or equal timestamp must still advance.
	require.NoError(t, s.WriteIssue(ctx, "/wt/.jeeves", "a#1", map[string]any{"phase": "b"}, 500))

	row, err := s.ReadIssue(ctx, "/wt/.jeeves")
	require.NoError(t, err)
	assert.Greater(t, row.UpdatedAtMS, int64(500))
	assert.Equal(t, "b", row.Status["phase"])
}

func TestListIssuesOrdersByOwnerRepoNumber(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRepositoryIssue(ctx, "zeta", "repo", 2, "t", "b", "build", "default"))
	require.NoError(t, s.UpsertRepositoryIssue(ctx, "acme", "repo", 5, "t", "b", "plan", "default"))
	require.NoError(t, s.UpsertRepositoryIssue(ctx, "acme", "repo", 1, "t", "b", "done", "default"))

	summaries, err := s.ListIssues(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "acme", summaries[0].Owner)
	assert.Equal(t, 1, summaries[0].IssueNumber)
	assert.Equal(t, "acme", summaries[1].Owner)
	assert.Equal(t, 5, summaries[1].IssueNumber)
	assert.Equal(t, "zeta", summaries[2].Owner)
}

func TestWriteTasksReplacesItemsAndDependencies(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []TaskFileItem{
		{TaskID: "A", Title: "do a", Status: "pending"},
		{TaskID: "B", Title: "do b", Status: "pending", DependsOn: []string{"A"}},
	}
	require.NoError(t, s.WriteTasks(ctx, "/wt/.jeeves", true, items, map[string]any{"note": "first split"}))

	got, err := s.ReadTasks(ctx, "/wt/.jeeves")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].TaskID)
	assert.Equal(t, []string{"A"}, got[1].DependsOn)

	// A second write fully replaces the prior set.
	require.NoError(t, s.WriteTasks(ctx, "/wt/.jeeves", true, []TaskFileItem{{TaskID: "C", Status: "pending"}}, nil))
	got2, err := s.ReadTasks(ctx, "/wt/.jeeves")
	require.NoError(t, err)
	require.Len(t, got2, 1)
	assert.Equal(t, "C", got2[0].TaskID)
}

func TestMemoryUpsertAndStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMemory(ctx, "/wt/.jeeves", "plan", "summary", "initial plan", 1, 10))
	require.NoError(t, s.MarkMemoryStale(ctx, "/wt/.jeeves", "plan"))

	rows, err := s.ListMemory(ctx, "/wt/.jeeves", "plan")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Stale)

	require.NoError(t, s.UpsertMemory(ctx, "/wt/.jeeves", "plan", "summary", "revised plan", 2, 20))
	rows2, err := s.ListMemory(ctx, "/wt/.jeeves", "plan")
	require.NoError(t, err)
	require.Len(t, rows2, 1)
	assert.False(t, rows2[0].Stale)
	assert.Equal(t, "revised plan", rows2[0].Value)
}

func TestActiveIssueSetClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, found, err := s.ActiveIssue(ctx, "/data")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetActiveIssue(ctx, "/data", "acme/widget#1", 1))
	ref, found, err := s.ActiveIssue(ctx, "/data")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "acme/widget#1", ref)

	require.NoError(t, s.ClearActiveIssue(ctx, "/data"))
	_, found, err = s.ActiveIssue(ctx, "/data")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBootstrapIssueIfEmptyImportsOnceThenMarksDone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	imported, err := s.BootstrapIssueIfEmpty(ctx, "/wt/.jeeves", "a#1", map[string]any{"phase": "legacy"}, 1)
	require.NoError(t, err)
	assert.True(t, imported)

	// Even if the caller tries again with different legacy content, the
	// marker prevents re-import.
	imported2, err := s.BootstrapIssueIfEmpty(ctx, "/wt/.jeeves", "a#1", map[string]any{"phase": "different"}, 2)
	require.NoError(t, err)
	assert.False(t, imported2)

	row, err := s.ReadIssue(ctx, "/wt/.jeeves")
	require.NoError(t, err)
	assert.Equal(t, "legacy", row.Status["phase"])
}

func TestPromptAndWorkflowContentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPrompt(ctx, "plan-prompt", "draft a plan", "sha1", 1))
	body, found, err := s.ReadPrompt(ctx, "plan-prompt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "draft a plan", body)

	require.NoError(t, s.UpsertWorkflowContent(ctx, "fix-issue", "name: fix-issue", `{"name":"fix-issue"}`, 1))
	yamlDoc, parsed, found, err := s.ReadWorkflowContent(ctx, "fix-issue")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "name: fix-issue", yamlDoc)
	assert.Contains(t, parsed, "fix-issue")
}

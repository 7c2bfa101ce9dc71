package issue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/internal/domain"
	"jeeves/internal/provider"
	"jeeves/internal/store"
)

type stubBatchAdapter struct{}

func (stubBatchAdapter) Kind() string { return "stub" }

func (stubBatchAdapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	return &provider.Result{TaskID: req.TaskID, Answer: "done: " + req.Prompt, Iterations: 1}, nil
}

func TestStartBatchRunsDependencyOrderedTasks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 11}
	_, err := svc.Init(ctx, ref, InitOptions{Workflow: "fix-issue"})
	require.NoError(t, err)

	stateDir := svc.layout.IssueStateDir(ref)
	require.NoError(t, svc.store.WriteTasks(ctx, stateDir, true, []store.TaskFileItem{
		{TaskID: "t1", Title: "first", Summary: "do the first thing", Status: "pending"},
		{TaskID: "t2", Title: "second", Summary: "do the second thing", Status: "pending", DependsOn: []string{"t1"}},
	}, nil))

	h, err := svc.StartBatch(ctx, ref, StartBatchOptions{
		Adapter:          stubBatchAdapter{},
		Request:          provider.Request{IssueRef: ref.String(), Kind: "stub"},
		MaxParallelTasks: 2,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return h.State().Terminal()
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "completed", string(h.State()))
}

func TestStartBatchWithNoStoredTasksFails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 12}
	_, err := svc.Init(ctx, ref, InitOptions{Workflow: "fix-issue"})
	require.NoError(t, err)

	_, err = svc.StartBatch(ctx, ref, StartBatchOptions{
		Adapter: stubBatchAdapter{},
		Request: provider.Request{IssueRef: ref.String(), Kind: "stub"},
	})
	assert.Error(t, err)
}

func TestSchedulerStatusMapsKnownStatuses(t *testing.T) {
	assert.Equal(t, "in_progress", string(schedulerStatus("in_progress")))
	assert.Equal(t, "passed", string(schedulerStatus("passed")))
	assert.Equal(t, "failed", string(schedulerStatus("failed")))
	assert.Equal(t, "pending", string(schedulerStatus("")))
	assert.Equal(t, "pending", string(schedulerStatus("unknown")))
}

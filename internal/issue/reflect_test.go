package issue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/internal/domain"
	"jeeves/internal/provider"
	"jeeves/internal/store"
)

type scriptedAdapter struct {
	answer string
}

func (scriptedAdapter) Kind() string { return "scripted" }

func (a scriptedAdapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	return &provider.Result{TaskID: req.TaskID, Answer: a.answer}, nil
}

func reflectTestInput() ReflectInput {
	return ReflectInput{
		Objective: "stabilize the reconciler worktree sync path",
		Memory:    []store.MemoryRow{{Scope: "issue", Key: "finding", Value: "symlink drift observed"}},
		Tasks: []store.TaskFileItem{
			{TaskID: "t1", Title: "audit symlinks", Summary: "compare worktree targets against repo index", Status: "pending"},
		},
	}
}

func TestReflectAcceptsGroundedJSON(t *testing.T) {
	svc := newTestService(t)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 21}
	adapter := scriptedAdapter{answer: `{
		"current_objective": "stabilize the reconciler worktree sync path",
		"open_hypotheses": ["symlink drift may recur"],
		"blockers": [],
		"next_actions": ["audit symlinks across worktrees"],
		"unresolved_questions": [],
		"required_evidence_links": [],
		"dropped": []
	}`}

	result, err := svc.Reflect(context.Background(), ref, adapter, reflectTestInput())
	require.NoError(t, err)
	assert.Equal(t, "stabilize the reconciler worktree sync path", result.CurrentObjective)
}

func TestReflectRejectsUngroundedContent(t *testing.T) {
	svc := newTestService(t)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 22}
	adapter := scriptedAdapter{answer: `{
		"current_objective": "launch an entirely unrelated marketing campaign",
		"open_hypotheses": [],
		"blockers": [],
		"next_actions": [],
		"unresolved_questions": [],
		"required_evidence_links": [],
		"dropped": []
	}`}

	_, err := svc.Reflect(context.Background(), ref, adapter, reflectTestInput())
	assert.Error(t, err)
}

func TestReflectRejectsBlankAnswer(t *testing.T) {
	svc := newTestService(t)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 23}
	_, err := svc.Reflect(context.Background(), ref, scriptedAdapter{answer: "   "}, reflectTestInput())
	assert.Error(t, err)
}

func TestReflectRejectsMalformedJSON(t *testing.T) {
	svc := newTestService(t)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 24}
	_, err := svc.Reflect(context.Background(), ref, scriptedAdapter{answer: "not json"}, reflectTestInput())
	assert.Error(t, err)
}

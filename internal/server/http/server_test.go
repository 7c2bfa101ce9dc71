package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/internal/boundary"
	"jeeves/internal/eventhub"
	"jeeves/internal/issue"
	"jeeves/internal/paths"
	"jeeves/internal/provider"
	"jeeves/internal/run"
	"jeeves/internal/store"
	"jeeves/internal/workflow"
)

const routerTestWorkflow = `
name: fix-issue
version: "1"
start: plan
phases:
  plan:
    type: execute
    prompt: "draft a plan"
  done:
    type: terminal
`

func newTestRouter(t *testing.T) (http.Handler, *eventhub.Hub) {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "jeeves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	layout := paths.Layout{Root: t.TempDir()}
	hub := eventhub.New()
	mgr := run.NewManager(hub)
	svc := issue.NewService(st, layout, mgr)

	w, err := workflow.Parse([]byte(routerTestWorkflow))
	require.NoError(t, err)
	svc.RegisterWorkflow("fix-issue", w)

	cmds := boundary.New(svc, st, layout, provider.NewRegistry(), 3)
	api := NewAPIHandler(cmds)
	return NewRouter(api, hub, RouterConfig{Environment: "development"}), hub
}

func postCommand(t *testing.T, handler http.Handler, command string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]any{"command": command, "payload": payload})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommandDispatchInitThenListIssues(t *testing.T) {
	handler, _ := newTestRouter(t)

	rec := postCommand(t, handler, "init_issue", boundary.InitIssueRequest{
		Owner: "acme", Repo: "widget", Number: 1, Title: "fix it", Workflow: "fix-issue",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var env boundary.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.OK)

	rec = postCommand(t, handler, "list_issues", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.OK)
}

func TestCommandDispatchUnknownCommand(t *testing.T) {
	handler, _ := newTestRouter(t)
	rec := postCommand(t, handler, "not_a_real_command", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var env boundary.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Equal(t, "validation", env.Code)
}

func TestCommandDispatchMalformedBody(t *testing.T) {
	handler, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/command", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSMiddlewareAllowsOriginInDevelopment(t *testing.T) {
	handler, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

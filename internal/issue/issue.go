// Package issue implements the issue lifecycle core (C12): the command
// surface (select/init/setPhase/startRun/stopRun/reflect) that drives an
// issue's workflow state, backed by the persistence store and the
// workflow/scheduler engines.
package issue

import (
	"context"
	"strings"
	"time"

	"jeeves/internal/domain"
	jerrors "jeeves/internal/errors"
	"jeeves/internal/logging"
	"jeeves/internal/paths"
	"jeeves/internal/run"
	"jeeves/internal/store"
	"jeeves/internal/workflow"
)

// Service is the issue lifecycle core. It holds no per-issue state itself —
// everything durable lives in the store — beyond the active-issue pointer
// and the run manager's in-memory run handles.
type Service struct {
	store    *store.Store
	layout   paths.Layout
	runs     *run.Manager
	workflows map[string]*workflow.Workflow
	logger   logging.Logger
}

// NewService wires a Service against an already-open store, a resolved data
// layout, and a run manager.
func NewService(st *store.Store, layout paths.Layout, runs *run.Manager) *Service {
	return &Service{
		store:     st,
		layout:    layout,
		runs:      runs,
		workflows: make(map[string]*workflow.Workflow),
		logger:    logging.NewComponentLogger("issue"),
	}
}

// RegisterWorkflow makes a parsed workflow available under name to Init,
// SetPhase and Advance.
func (s *Service) RegisterWorkflow(name string, w *workflow.Workflow) {
	s.workflows[name] = w
}

// Select sets ref as the data root's active issue.
func (s *Service) Select(ctx context.Context, ref domain.IssueRef) error {
	return s.store.SetActiveIssue(ctx, s.layout.Root, ref.String(), time.Now().UnixMilli())
}

// ActiveIssue returns the currently selected issue ref, if any.
func (s *Service) ActiveIssue(ctx context.Context) (domain.IssueRef, bool, error) {
	raw, found, err := s.store.ActiveIssue(ctx, s.layout.Root)
	if err != nil || !found {
		return domain.IssueRef{}, false, err
	}
	ref, ok := parseIssueRef(raw)
	return ref, ok, nil
}

// InitOptions configures Init.
type InitOptions struct {
	Title    string
	Workflow string
	Branch   string
}

// Init prepares an issue's initial state: the canonical phase/status row,
// seeded from the named workflow's Start phase.
func (s *Service) Init(ctx context.Context, ref domain.IssueRef, opts InitOptions) (*domain.IssueState, error) {
	w, ok := s.workflows[opts.Workflow]
	if !ok {
		return nil, jerrors.NotFound("issue.Init", "workflow "+opts.Workflow+" is not registered")
	}
	state := &domain.IssueState{
		Issue:        ref,
		Phase:        w.Start,
		Status:       map[string]any{},
		WorktreePath: s.layout.WorktreeDir(ref),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.persist(ctx, ref, state); err != nil {
		return nil, err
	}
	if err := s.store.UpsertRepositoryIssue(ctx, ref.Owner, ref.Repo, ref.Number, opts.Title, opts.Branch, state.Phase, opts.Workflow); err != nil {
		return nil, err
	}
	return state, nil
}

// Load reads ref's current state from the store, first importing a legacy
// issue.json/tasks.json pair off disk if this is the issue's first load
// since the move to the sqlite store (spec.md §4.1's one-shot bootstrap).
func (s *Service) Load(ctx context.Context, ref domain.IssueRef) (*domain.IssueState, error) {
	stateDir := s.layout.IssueStateDir(ref)
	if err := s.bootstrapLegacy(ctx, ref, stateDir); err != nil {
		return nil, err
	}
	row, err := s.store.ReadIssue(ctx, stateDir)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, jerrors.NotFound("issue.Load", "no state recorded for "+ref.String())
	}
	phase, _ := row.Status["__phase"].(string)
	delete(row.Status, "__phase")
	return &domain.IssueState{
		Issue:        ref,
		Phase:        phase,
		Status:       row.Status,
		WorktreePath: s.layout.WorktreeDir(ref),
		UpdatedAt:    time.UnixMilli(row.UpdatedAtMS),
	}, nil
}

func (s *Service) persist(ctx context.Context, ref domain.IssueRef, state *domain.IssueState) error {
	payload := make(map[string]any, len(state.Status)+1)
	for k, v := range state.Status {
		payload[k] = v
	}
	payload["__phase"] = state.Phase
	stateDir := s.layout.IssueStateDir(ref)
	return s.store.WriteIssue(ctx, stateDir, ref.String(), payload, time.Now().UnixMilli())
}

// SetPhase manually jumps ref to phase, validated against its registered
// workflow.
func (s *Service) SetPhase(ctx context.Context, ref domain.IssueRef, workflowName, phase string) error {
	w, ok := s.workflows[workflowName]
	if !ok {
		return jerrors.NotFound("issue.SetPhase", "workflow "+workflowName+" is not registered")
	}
	if _, ok := w.Phases[phase]; !ok {
		return jerrors.Validation("issue.SetPhase", "phase "+phase+" is not declared in workflow "+workflowName)
	}
	state, err := s.Load(ctx, ref)
	if err != nil {
		return err
	}
	state.Phase = phase
	state.UpdatedAt = time.Now()
	return s.persist(ctx, ref, state)
}

// Advance runs the workflow engine from ref's current phase to the next
// resting point (first non-auto transition, no-match, or terminal phase)
// and persists the result.
func (s *Service) Advance(ctx context.Context, ref domain.IssueRef, workflowName string) (string, error) {
	w, ok := s.workflows[workflowName]
	if !ok {
		return "", jerrors.NotFound("issue.Advance", "workflow "+workflowName+" is not registered")
	}
	state, err := s.Load(ctx, ref)
	if err != nil {
		return "", err
	}
	final, _, err := workflow.RunToRest(w, state.Phase, state.Status)
	if err != nil {
		return "", err
	}
	state.Phase = final
	state.UpdatedAt = time.Now()
	if err := s.persist(ctx, ref, state); err != nil {
		return "", err
	}
	return final, nil
}

// RunManager exposes the run manager for callers that need to start/stop
// runs directly (the HTTP boundary layer).
func (s *Service) RunManager() *run.Manager { return s.runs }

// ResolveWorkerRunID implements the worker-artifacts-key resolution rule: a
// resumed parallel wave's worker artifacts key off issue.json's
// status.parallel.runId, which takes precedence over the current run's
// run_id; the current run id is used only when the parallel value is
// absent or blank after trimming.
func ResolveWorkerRunID(state *domain.IssueState, currentRunID string) string {
	if trimmed := strings.TrimSpace(state.RunID()); trimmed != "" {
		return trimmed
	}
	return currentRunID
}

func parseIssueRef(s string) (domain.IssueRef, bool) {
	ownerRepo, numPart, ok := cutLast(s, "#")
	if !ok {
		return domain.IssueRef{}, false
	}
	owner, repo, ok := cutFirst(ownerRepo, "/")
	if !ok {
		return domain.IssueRef{}, false
	}
	num := 0
	for _, c := range numPart {
		if c < '0' || c > '9' {
			return domain.IssueRef{}, false
		}
		num = num*10 + int(c-'0')
	}
	return domain.IssueRef{Owner: owner, Repo: repo, Number: num}, true
}

func cutLast(s, sep string) (before, after string, ok bool) {
	idx := strings.LastIndex(s, sep)
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

func cutFirst(s, sep string) (before, after string, ok bool) {
	idx := strings.Index(s, sep)
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+len(sep):], true
}

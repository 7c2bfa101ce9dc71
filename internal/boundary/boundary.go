// Package boundary implements the transport-agnostic command surface
// (C15): list_issues, select_issue, init_issue, start_run, start_batch,
// stop_run, set_phase, upsert_project_file, delete_project_file,
// reconcile_project_files, put_credentials, delete_credentials, and
// expand_issue_summary. Every command returns a discriminated
// {ok:true,...} / {ok:false,error,code,field_errors?} envelope so HTTP (or
// any other transport) stays a thin adapter over this API. Credential
// values never appear in a response, matching the event-envelope
// "*-status" convention.
package boundary

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"jeeves/internal/atomicfile"
	"jeeves/internal/domain"
	jerrors "jeeves/internal/errors"
	"jeeves/internal/issue"
	"jeeves/internal/output"
	"jeeves/internal/paths"
	"jeeves/internal/provider"
	"jeeves/internal/reconcile"
	"jeeves/internal/run"
	"jeeves/internal/store"
)

// Envelope is the discriminated response shape every command returns.
type Envelope struct {
	OK          bool              `json:"ok"`
	Data        any               `json:"data,omitempty"`
	Error       string            `json:"error,omitempty"`
	Code        string            `json:"code,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

func ok(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

func fail(err error) Envelope {
	env := Envelope{OK: false, Error: err.Error(), Code: string(jerrors.KindOf(err))}
	var typed *jerrors.Error
	if errors.As(err, &typed) && len(typed.Fields) > 0 {
		env.FieldErrors = typed.Fields
	}
	return env
}

// Commands is the command surface, backed by the issue lifecycle core, the
// persistence store, the data layout, and the provider registry (start_run
// validates the requested provider kind is registered).
type Commands struct {
	issues             *issue.Service
	store              *store.Store
	layout             paths.Layout
	providers          *provider.Registry
	defaultMaxParallel int
}

// New wires a Commands instance. defaultMaxParallel seeds start_batch's
// max_parallel_tasks when a request omits it (or sets it to zero).
func New(issues *issue.Service, st *store.Store, layout paths.Layout, providers *provider.Registry, defaultMaxParallel int) *Commands {
	return &Commands{issues: issues, store: st, layout: layout, providers: providers, defaultMaxParallel: defaultMaxParallel}
}

func ref(owner, repo string, number int) domain.IssueRef {
	return domain.IssueRef{Owner: owner, Repo: repo, Number: number}
}

// ListIssues returns every tracked issue's summary.
func (c *Commands) ListIssues(ctx context.Context) Envelope {
	summaries, err := c.store.ListIssues(ctx)
	if err != nil {
		return fail(err)
	}
	return ok(summaries)
}

// SelectIssueRequest is select_issue's payload.
type SelectIssueRequest struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

// SelectIssue sets the data root's active issue.
func (c *Commands) SelectIssue(ctx context.Context, req SelectIssueRequest) Envelope {
	r := ref(req.Owner, req.Repo, req.Number)
	if err := c.issues.Select(ctx, r); err != nil {
		return fail(err)
	}
	return ok(map[string]any{"issue_ref": r.String()})
}

// InitIssueRequest is init_issue's payload.
type InitIssueRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Workflow string `json:"workflow"`
	Branch   string `json:"branch"`
}

// InitIssue prepares an issue's initial phase/status row.
func (c *Commands) InitIssue(ctx context.Context, req InitIssueRequest) Envelope {
	if req.Workflow == "" {
		return fail(jerrors.ValidationFields("boundary.InitIssue", "missing required fields",
			map[string]string{"workflow": "workflow is required"}))
	}
	state, err := c.issues.Init(ctx, ref(req.Owner, req.Repo, req.Number), issue.InitOptions{
		Title:    req.Title,
		Workflow: req.Workflow,
		Branch:   req.Branch,
	})
	if err != nil {
		return fail(err)
	}
	return ok(state)
}

// SetPhaseRequest is set_phase's payload.
type SetPhaseRequest struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Number   int    `json:"number"`
	Workflow string `json:"workflow"`
	Phase    string `json:"phase"`
}

// SetPhase manually jumps an issue's phase, validated against its workflow.
func (c *Commands) SetPhase(ctx context.Context, req SetPhaseRequest) Envelope {
	if err := c.issues.SetPhase(ctx, ref(req.Owner, req.Repo, req.Number), req.Workflow, req.Phase); err != nil {
		return fail(err)
	}
	return ok(nil)
}

// StartRunRequest is start_run's payload.
type StartRunRequest struct {
	Owner         string            `json:"owner"`
	Repo          string            `json:"repo"`
	Number        int               `json:"number"`
	TaskID        string            `json:"task_id"`
	Prompt        string            `json:"prompt"`
	ProviderKind  string            `json:"provider_kind"`
	Config        map[string]string `json:"config"`
	MaxIterations int               `json:"max_iterations"`
	ArtifactPath  string            `json:"artifact_path"`
}

// StartRun launches a provider subprocess under the run manager's
// one-active-run-per-issue invariant. RUN_ALREADY_ACTIVE is surfaced as a
// conflict error when a run is already underway for this issue.
func (c *Commands) StartRun(ctx context.Context, req StartRunRequest) Envelope {
	r := ref(req.Owner, req.Repo, req.Number)
	adapter, err := c.providers.Get(req.ProviderKind)
	if err != nil {
		return fail(err)
	}
	state, err := c.issues.Load(ctx, r)
	if err != nil {
		return fail(err)
	}
	artifactPath := req.ArtifactPath
	if artifactPath == "" {
		artifactPath = c.layout.IssueStateDir(r) + "/run-artifact.json"
	}
	h, err := c.issues.RunManager().StartRun(ctx, run.StartOptions{
		IssueRef: r,
		Adapter:  adapter,
		Request: provider.Request{
			TaskID:     req.TaskID,
			IssueRef:   r.String(),
			Prompt:     req.Prompt,
			Kind:       req.ProviderKind,
			WorkingDir: state.WorktreePath,
			Config:     req.Config,
		},
		ArtifactPath:  artifactPath,
		MaxIterations: req.MaxIterations,
	})
	if err != nil {
		return fail(err)
	}
	return ok(h.Status())
}

// StartBatchRequest is start_batch's payload: it launches ref's current
// ready task set (C7) concurrently, bounded by max_parallel_tasks, under
// the same one-active-run-per-issue invariant start_run enforces — the
// whole parallel wave counts as a single run.
type StartBatchRequest struct {
	Owner            string            `json:"owner"`
	Repo             string            `json:"repo"`
	Number           int               `json:"number"`
	TaskID           string            `json:"task_id"`
	Prompt           string            `json:"prompt"`
	ProviderKind     string            `json:"provider_kind"`
	Config           map[string]string `json:"config"`
	MaxParallelTasks int               `json:"max_parallel_tasks"`
	MaxIterations    int               `json:"max_iterations"`
	ArtifactPath     string            `json:"artifact_path"`
}

// StartBatch validates the issue's task list into a dependency graph and
// drives its ready set to completion concurrently. RUN_ALREADY_ACTIVE is
// surfaced as a conflict error when a run (batch or single) is already
// underway for this issue.
func (c *Commands) StartBatch(ctx context.Context, req StartBatchRequest) Envelope {
	r := ref(req.Owner, req.Repo, req.Number)
	adapter, err := c.providers.Get(req.ProviderKind)
	if err != nil {
		return fail(err)
	}
	state, err := c.issues.Load(ctx, r)
	if err != nil {
		return fail(err)
	}
	artifactPath := req.ArtifactPath
	if artifactPath == "" {
		artifactPath = c.layout.IssueStateDir(r) + "/run-artifact.json"
	}
	maxParallel := req.MaxParallelTasks
	if maxParallel <= 0 {
		maxParallel = c.defaultMaxParallel
	}
	h, err := c.issues.StartBatch(ctx, r, issue.StartBatchOptions{
		Adapter: adapter,
		Request: provider.Request{
			TaskID:     req.TaskID,
			IssueRef:   r.String(),
			Prompt:     req.Prompt,
			Kind:       req.ProviderKind,
			WorkingDir: state.WorktreePath,
			Config:     req.Config,
		},
		MaxParallelTasks: maxParallel,
		ArtifactPath:     artifactPath,
		MaxIterations:    req.MaxIterations,
	})
	if err != nil {
		return fail(err)
	}
	return ok(h.Status())
}

// StopRunRequest is stop_run's payload.
type StopRunRequest struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
	Force  bool   `json:"force"`
}

// StopRun requests termination of the active run for an issue. Stopping a
// run that does not exist, or is already terminal, is a no-op and reports
// ok:true.
func (c *Commands) StopRun(ctx context.Context, req StopRunRequest) Envelope {
	if err := c.issues.RunManager().StopRun(ref(req.Owner, req.Repo, req.Number), req.Force); err != nil {
		return fail(err)
	}
	return ok(nil)
}

// UpsertProjectFileRequest is upsert_project_file's payload: it writes a
// repo-relative file's content into the blob cache so the reconciler can
// later project it into issue worktrees.
type UpsertProjectFileRequest struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	RelPath string `json:"rel_path"`
	Content string `json:"content"`
}

// UpsertProjectFile writes or replaces a cached repo file blob.
func (c *Commands) UpsertProjectFile(_ context.Context, req UpsertProjectFileRequest) Envelope {
	if req.RelPath == "" {
		return fail(jerrors.ValidationFields("boundary.UpsertProjectFile", "missing required fields",
			map[string]string{"rel_path": "rel_path is required"}))
	}
	blobID := blobIDFor(req.RelPath)
	blobPath := c.layout.RepoFileBlob(req.Owner, req.Repo, blobID)
	if err := atomicfile.EnsureParentDir(blobPath); err != nil {
		return fail(jerrors.Wrap(jerrors.KindIO, "boundary.UpsertProjectFile", err))
	}
	if err := atomicfile.WriteTextAtomic(blobPath, req.Content); err != nil {
		return fail(jerrors.Wrap(jerrors.KindIO, "boundary.UpsertProjectFile", err))
	}
	index, err := loadRepoFileIndex(c.layout, req.Owner, req.Repo)
	if err != nil {
		return fail(err)
	}
	index.upsert(req.RelPath, blobID)
	if err := saveRepoFileIndex(c.layout, req.Owner, req.Repo, index); err != nil {
		return fail(err)
	}
	return ok(map[string]any{"rel_path": req.RelPath, "blob_id": blobID})
}

// DeleteProjectFileRequest is delete_project_file's payload.
type DeleteProjectFileRequest struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	RelPath string `json:"rel_path"`
}

// DeleteProjectFile removes a file from the repo-files index; its blob stays
// on disk. A later reconcile_project_files call unlinks the file's worktree
// target only when the caller lists it in previous_managed_targets.
func (c *Commands) DeleteProjectFile(_ context.Context, req DeleteProjectFileRequest) Envelope {
	index, err := loadRepoFileIndex(c.layout, req.Owner, req.Repo)
	if err != nil {
		return fail(err)
	}
	index.remove(req.RelPath)
	if err := saveRepoFileIndex(c.layout, req.Owner, req.Repo, index); err != nil {
		return fail(err)
	}
	return ok(nil)
}

// ReconcileProjectFilesRequest is reconcile_project_files's payload.
type ReconcileProjectFilesRequest struct {
	Owner                  string   `json:"owner"`
	Repo                   string   `json:"repo"`
	Number                 int      `json:"number"`
	PreviousManagedTargets []string `json:"previous_managed_targets"`
}

// ReconcileProjectFiles projects the repo's current file index into the
// issue's worktree via the projected-file reconciler.
func (c *Commands) ReconcileProjectFiles(_ context.Context, req ReconcileProjectFilesRequest) Envelope {
	r := ref(req.Owner, req.Repo, req.Number)
	index, err := loadRepoFileIndex(c.layout, req.Owner, req.Repo)
	if err != nil {
		return fail(err)
	}
	result := reconcile.Reconcile(reconcile.Request{
		WorktreeDir:            c.layout.WorktreeDir(r),
		RepoFilesDir:           filepath.Dir(c.layout.RepoFilesIndex(req.Owner, req.Repo)),
		Files:                  index.relPaths(),
		PreviousManagedTargets: req.PreviousManagedTargets,
	})
	return ok(result)
}

// PutCredentialsRequest is put_credentials's payload. The storage format for
// secret values is deliberately unspecified at this layer; they are written
// with atomicfile's secret-mode permissions and never echoed back.
type PutCredentialsRequest struct {
	Provider string            `json:"provider"`
	Values   map[string]string `json:"values"`
}

// PutCredentials stores provider credential values. The response never
// includes the values, only which keys were accepted.
func (c *Commands) PutCredentials(_ context.Context, req PutCredentialsRequest) Envelope {
	if req.Provider == "" {
		return fail(jerrors.ValidationFields("boundary.PutCredentials", "missing required fields",
			map[string]string{"provider": "provider is required"}))
	}
	path := credentialsPath(c.layout, req.Provider)
	data, err := json.Marshal(req.Values)
	if err != nil {
		return fail(jerrors.Wrap(jerrors.KindInternal, "boundary.PutCredentials", err))
	}
	if err := atomicfile.WriteSecretAtomic(path, string(data)); err != nil {
		return fail(jerrors.Wrap(jerrors.KindIO, "boundary.PutCredentials", err))
	}
	keys := make([]string, 0, len(req.Values))
	for k := range req.Values {
		keys = append(keys, k)
	}
	return ok(map[string]any{"provider": req.Provider, "keys": keys})
}

// DeleteCredentialsRequest is delete_credentials's payload.
type DeleteCredentialsRequest struct {
	Provider string `json:"provider"`
}

// DeleteCredentials removes a provider's stored credential file, if any.
func (c *Commands) DeleteCredentials(_ context.Context, req DeleteCredentialsRequest) Envelope {
	path := credentialsPath(c.layout, req.Provider)
	if err := removeIfExists(path); err != nil {
		return fail(jerrors.Wrap(jerrors.KindIO, "boundary.DeleteCredentials", err))
	}
	return ok(nil)
}

// ExpandIssueSummaryRequest is expand_issue_summary's payload: it re-derives
// a structured, extractive summary from an issue's raw stored status text,
// the same shape the output writer (C9) produces for over-cap tool output.
type ExpandIssueSummaryRequest struct {
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	Number    int    `json:"number"`
	StatusKey string `json:"status_key"` // key within status holding the raw text; defaults to "summary_raw"
}

// ExpandIssueSummary returns the extractive summary (or the raw text
// unchanged, if under cap) for the named status field.
func (c *Commands) ExpandIssueSummary(ctx context.Context, req ExpandIssueSummaryRequest) Envelope {
	state, err := c.issues.Load(ctx, ref(req.Owner, req.Repo, req.Number))
	if err != nil {
		return fail(err)
	}
	key := req.StatusKey
	if key == "" {
		key = "summary_raw"
	}
	raw, _ := state.Status[key].(string)
	if raw == "" {
		return fail(jerrors.NotFound("boundary.ExpandIssueSummary", "no raw text recorded under status."+key))
	}
	text, compression := output.Summarize(raw, output.DefaultCharCap, output.DefaultLineCap)
	return ok(map[string]any{"summary": text, "compression": compression})
}

package issue

import (
	"context"
	"strings"
	"sync"

	"jeeves/internal/domain"
	jerrors "jeeves/internal/errors"
	"jeeves/internal/provider"
	"jeeves/internal/run"
	"jeeves/internal/scheduler"
	"jeeves/internal/store"
)

// StartBatchOptions configures StartBatch.
type StartBatchOptions struct {
	Adapter          provider.Adapter
	Request          provider.Request
	MaxParallelTasks int
	ArtifactPath     string
	MaxIterations    int
	// PromptFor returns the per-task prompt for taskID. If nil, a task's
	// stored summary is used.
	PromptFor func(taskID string) string
}

// StartBatch validates ref's current task list into a dependency graph (C7)
// and drives it to completion under the run manager's one-active-run-per-
// issue invariant: the whole parallel wave is one run, with each ready
// task dispatched concurrently up to MaxParallelTasks. This is how
// status.parallel.runId comes to represent a batch of concurrent task
// workers rather than a single provider call.
func (s *Service) StartBatch(ctx context.Context, ref domain.IssueRef, opts StartBatchOptions) (*run.Handle, error) {
	stateDir := s.layout.IssueStateDir(ref)
	items, err := s.store.ReadTasks(ctx, stateDir)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, jerrors.NotFound("issue.StartBatch", "no tasks recorded for "+ref.String())
	}

	byID := make(map[string]store.TaskFileItem, len(items))
	nodes := make([]scheduler.Node, 0, len(items))
	for _, it := range items {
		byID[it.TaskID] = it
		nodes = append(nodes, scheduler.Node{
			ID:        it.TaskID,
			DependsOn: it.DependsOn,
			Status:    schedulerStatus(it.Status),
		})
	}
	// Validate once up front so a duplicate id, dangling dependency, or
	// cycle fails StartBatch immediately instead of surfacing mid-run.
	if _, err := scheduler.ValidateGraph(nodes); err != nil {
		return nil, err
	}

	promptFor := opts.PromptFor
	if promptFor == nil {
		promptFor = func(taskID string) string { return byID[taskID].Summary }
	}

	adapter := &batchAdapter{
		runs:             s.runs,
		inner:            opts.Adapter,
		nodes:            nodes,
		maxParallelTasks: opts.MaxParallelTasks,
		promptFor:        promptFor,
	}

	return s.runs.StartRun(ctx, run.StartOptions{
		IssueRef:      ref,
		Adapter:       adapter,
		Request:       opts.Request,
		ArtifactPath:  opts.ArtifactPath,
		MaxIterations: opts.MaxIterations,
	})
}

// schedulerStatus maps a stored task's status string onto the scheduler's
// own vocabulary; anything unrecognised is treated as pending so a typo'd
// or legacy status doesn't silently block the ready-set rule.
func schedulerStatus(status string) scheduler.Status {
	switch status {
	case "in_progress":
		return scheduler.StatusInProgress
	case "passed":
		return scheduler.StatusPassed
	case "failed":
		return scheduler.StatusFailed
	default:
		return scheduler.StatusPending
	}
}

// batchAdapter implements provider.Adapter by repeatedly re-validating a
// scheduler.Graph from its current node statuses, fanning each round's
// ready set out to the underlying per-task adapter (bounded by
// maxParallelTasks via the run manager's weighted semaphore), folding the
// outcome back into the node statuses, and selecting the next round —
// until no task is left ready. It lets a whole parallel wave flow through
// run.Manager.StartRun/drive unchanged: to the run manager it looks like
// one provider call.
type batchAdapter struct {
	runs             *run.Manager
	inner            provider.Adapter
	nodes            []scheduler.Node
	maxParallelTasks int
	promptFor        func(taskID string) string
}

func (b *batchAdapter) Kind() string { return "batch:" + b.inner.Kind() }

func (b *batchAdapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	var (
		iterations int
		tokensUsed int
		costUSD    float64
		answers    []string
	)

	nodes := append([]scheduler.Node(nil), b.nodes...)
	for {
		graph, err := scheduler.ValidateGraph(nodes)
		if err != nil {
			return nil, jerrors.Wrap(jerrors.KindScheduler, "issue.batchAdapter.Execute", err)
		}

		var mu sync.Mutex
		outcomes := make(map[string]scheduler.Status)

		selected, err := b.runs.RunBatch(ctx, graph, b.maxParallelTasks, func(ctx context.Context, node scheduler.Node) error {
			taskReq := req
			taskReq.TaskID = node.ID
			taskReq.Prompt = b.promptFor(node.ID)

			res, execErr := b.inner.Execute(ctx, taskReq)

			mu.Lock()
			defer mu.Unlock()
			if execErr != nil {
				outcomes[node.ID] = scheduler.StatusFailed
				return jerrors.Wrap(jerrors.KindProvider, "issue.batchAdapter.Execute", execErr)
			}
			outcomes[node.ID] = scheduler.StatusPassed
			iterations += res.Iterations
			tokensUsed += res.TokensUsed
			costUSD += res.CostUSD
			answers = append(answers, node.ID+": "+res.Answer)
			return nil
		})

		for i, n := range nodes {
			if s, ok := outcomes[n.ID]; ok {
				nodes[i].Status = s
			}
		}
		if err != nil {
			return nil, err
		}
		if len(selected) == 0 {
			break
		}
	}

	return &provider.Result{
		TaskID:     req.TaskID,
		Answer:     strings.Join(answers, "\n"),
		Iterations: iterations,
		TokensUsed: tokensUsed,
		CostUSD:    costUSD,
	}, nil
}

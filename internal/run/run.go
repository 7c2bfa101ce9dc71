// Package run implements the run manager (C11): the one-active-run-per-
// issue invariant, run_id assignment, and the glue between the provider
// supervisor, the output writer, and the event hub for a single run's
// lifecycle.
package run

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"jeeves/internal/domain"
	jerrors "jeeves/internal/errors"
	"jeeves/internal/eventhub"
	"jeeves/internal/logging"
	"jeeves/internal/output"
	"jeeves/internal/provider"
	"jeeves/internal/scheduler"
)

// activeRunsGauge and runDurationHistogram are the run manager's only
// metrics surface, deliberately small: whether a run is active per issue,
// and how long runs take grouped by how they ended.
var (
	activeRunsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jeeves_runs_active",
		Help: "Runs currently active, by issue.",
	}, []string{"issue"})

	runDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jeeves_run_duration_seconds",
		Help:    "Run duration in seconds, by completion reason.",
		Buckets: prometheus.DefBuckets,
	}, []string{"completion_reason"})
)

// CompletionReason classifies why a run stopped.
type CompletionReason string

const (
	ReasonCompleted CompletionReason = "completed"
	ReasonFailed    CompletionReason = "failed"
	ReasonTimedOut  CompletionReason = "timed_out"
	ReasonCancelled CompletionReason = "cancelled"
)

// State is a run's absorbing state machine position.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateDone     State = "completed"
	StateFailed   State = "failed"
	StateTimedOut State = "timed_out"
	StateCanceled State = "cancelled"
)

func (s State) Terminal() bool {
	switch s {
	case StateDone, StateFailed, StateTimedOut, StateCanceled:
		return true
	default:
		return false
	}
}

// Status mirrors the spec's RunStatus shape.
type Status struct {
	RunID            string
	IssueRef         domain.IssueRef
	Running          bool
	PID              int
	StartedAt        time.Time
	EndedAt          *time.Time
	CompletionReason CompletionReason
	LastError        string
	CurrentIteration int
	MaxIterations    int
}

// Handle is a live run: its supervisor cancel func, output writer, and
// current status, guarded by its own mutex.
type Handle struct {
	mu     sync.Mutex
	status Status
	state  State
	cancel context.CancelFunc
	writer *output.Writer
}

func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Manager enforces the one-active-run-per-(dataDir,issue_ref) invariant and
// owns every live run's Handle.
type Manager struct {
	hub    *eventhub.Hub
	logger logging.Logger

	mu     sync.Mutex
	active map[string]*Handle // keyed by IssueRef.String()
}

// NewManager creates a Manager broadcasting run lifecycle events onto hub.
func NewManager(hub *eventhub.Hub) *Manager {
	return &Manager{
		hub:    hub,
		logger: logging.NewComponentLogger("run"),
		active: make(map[string]*Handle),
	}
}

// StartOptions configures one run.
type StartOptions struct {
	IssueRef      domain.IssueRef
	Adapter       provider.Adapter
	Request       provider.Request
	ArtifactPath  string
	MaxIterations int
}

// StartRun begins a run for ref, failing with RUN_ALREADY_ACTIVE if one is
// already running for that issue. The returned Handle is live immediately;
// the supervised provider call runs in a background goroutine.
func (m *Manager) StartRun(ctx context.Context, opts StartOptions) (*Handle, error) {
	key := opts.IssueRef.String()

	m.mu.Lock()
	if existing, ok := m.active[key]; ok && !existing.State().Terminal() {
		m.mu.Unlock()
		return nil, jerrors.New(jerrors.KindConflict, "run.StartRun", "RUN_ALREADY_ACTIVE")
	}
	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)
	now := time.Now()
	handle := &Handle{
		state: StateStarting,
		status: Status{
			RunID:         runID,
			IssueRef:      opts.IssueRef,
			Running:       true,
			StartedAt:     now,
			MaxIterations: opts.MaxIterations,
		},
		cancel: cancel,
		writer: output.New(opts.ArtifactPath, runID, now, output.DefaultDebounce),
	}
	m.active[key] = handle
	m.mu.Unlock()

	activeRunsGauge.WithLabelValues(key).Inc()

	m.hub.Broadcast(domain.EventEnvelope{
		EventID:   runID + "-start",
		IssueRef:  opts.IssueRef,
		RunID:     runID,
		Type:      domain.EventTypeRunStarted,
		CreatedAt: now,
	})

	go m.drive(runCtx, handle, opts)
	return handle, nil
}

func (m *Manager) drive(ctx context.Context, handle *Handle, opts StartOptions) {
	handle.mu.Lock()
	handle.state = StateRunning
	handle.mu.Unlock()

	req := opts.Request
	req.OnProgress = func(p provider.Progress) {
		handle.mu.Lock()
		handle.status.CurrentIteration = p.Iteration
		handle.mu.Unlock()
		m.hub.Broadcast(domain.EventEnvelope{
			IssueRef:  opts.IssueRef,
			RunID:     handle.status.RunID,
			Type:      domain.EventTypeRunProgress,
			Payload:   map[string]any{"iteration": p.Iteration, "tokens_used": p.TokensUsed, "cost_usd": p.CostUSD},
			CreatedAt: time.Now(),
		})
	}
	req.OnEventLine = func(raw []byte) {
		handle.writer.AppendMessage(output.Message{Type: "raw", Timestamp: time.Now(), Content: string(raw)})
	}

	result, err := opts.Adapter.Execute(ctx, req)

	endedAt := time.Now()
	reason := ReasonCompleted
	state := StateDone
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		if ctx.Err() == context.Canceled {
			reason = ReasonCancelled
			state = StateCanceled
		} else {
			reason = ReasonFailed
			state = StateFailed
		}
	}

	_ = handle.writer.Finalize(endedAt, err == nil, errMsg, string(reason))

	activeRunsGauge.WithLabelValues(opts.IssueRef.String()).Dec()
	runDurationHistogram.WithLabelValues(string(reason)).Observe(endedAt.Sub(handle.Status().StartedAt).Seconds())

	handle.mu.Lock()
	handle.state = state
	handle.status.Running = false
	handle.status.EndedAt = &endedAt
	handle.status.CompletionReason = reason
	handle.status.LastError = errMsg
	if result != nil {
		handle.status.CurrentIteration = result.Iterations
	}
	handle.mu.Unlock()

	m.hub.Broadcast(domain.EventEnvelope{
		IssueRef:  opts.IssueRef,
		RunID:     handle.status.RunID,
		Type:      domain.EventTypeRunFinished,
		Payload:   map[string]any{"reason": string(reason), "error": errMsg},
		CreatedAt: endedAt,
	})
}

// StopRun cancels the active run's context for ref; force does not change
// what it does. Stopping an already-terminal or non-existent run is a
// no-op, matching the idempotent-stop contract.
func (m *Manager) StopRun(ref domain.IssueRef, force bool) error {
	m.mu.Lock()
	handle, ok := m.active[ref.String()]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if handle.State().Terminal() {
		return nil
	}
	handle.cancel()
	return nil
}

// ActiveRun returns the live Handle for ref, if any.
func (m *Manager) ActiveRun(ref domain.IssueRef) (*Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.active[ref.String()]
	return h, ok
}

// RunBatch selects the ready set from graph (C7) and runs dispatch for
// each selected node concurrently, holding at most maxParallelTasks in
// flight at once via a weighted semaphore. It returns the selected nodes
// alongside the first error any dispatch returned (others are still
// allowed to finish; errgroup cancels the shared context once one fails).
// This is the run manager's enforcement of the scheduler's pure selection
// against a real concurrency cap, independent of and in addition to the
// one-active-run-per-issue invariant StartRun enforces for the run as a
// whole.
func (m *Manager) RunBatch(ctx context.Context, graph *scheduler.Graph, maxParallelTasks int, dispatch func(ctx context.Context, node scheduler.Node) error) ([]scheduler.Node, error) {
	if maxParallelTasks <= 0 {
		maxParallelTasks = 1
	}
	selected := graph.SelectReady(maxParallelTasks)

	sem := semaphore.NewWeighted(int64(maxParallelTasks))
	eg, egCtx := errgroup.WithContext(ctx)

	for _, node := range selected {
		node := node
		eg.Go(func() error {
			if err := sem.Acquire(egCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return dispatch(egCtx, node)
		})
	}

	return selected, eg.Wait()
}

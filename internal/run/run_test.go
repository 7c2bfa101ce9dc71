package run

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jeeves/internal/domain"
	"jeeves/internal/eventhub"
	"jeeves/internal/provider"
	"jeeves/internal/scheduler"
)

type fakeAdapter struct {
	delay   time.Duration
	result  *provider.Result
	err     error
	started chan struct{}
}

func (f *fakeAdapter) Kind() string { return "fake" }

func (f *fakeAdapter) Execute(ctx context.Context, req provider.Request) (*provider.Result, error) {
	if f.started != nil {
		close(f.started)
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if req.OnProgress != nil {
		req.OnProgress(provider.Progress{Iteration: 1})
	}
	return f.result, f.err
}

func waitUntilTerminal(t *testing.T, h *Handle) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if h.State().Terminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state in time")
}

func TestStartRunCompletesSuccessfully(t *testing.T) {
	hub := eventhub.New()
	var mu sync.Mutex
	var events []string
	hub.AddSubscriber(func(e domain.EventEnvelope) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e.Type)
		return nil
	})

	m := NewManager(hub)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 1}
	adapter := &fakeAdapter{result: &provider.Result{Answer: "done"}}

	h, err := m.StartRun(context.Background(), StartOptions{
		IssueRef:     ref,
		Adapter:      adapter,
		Request:      provider.Request{TaskID: "t1", Prompt: "go"},
		ArtifactPath: filepath.Join(t.TempDir(), "artifact.json"),
	})
	require.NoError(t, err)

	waitUntilTerminal(t, h)
	assert.Equal(t, StateDone, h.State())
	assert.Equal(t, ReasonCompleted, h.Status().CompletionReason)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, domain.EventTypeRunStarted)
	assert.Contains(t, events, domain.EventTypeRunFinished)
}

func TestStartRunRejectsConcurrentRunForSameIssue(t *testing.T) {
	hub := eventhub.New()
	m := NewManager(hub)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 1}
	started := make(chan struct{})
	adapter := &fakeAdapter{delay: 200 * time.Millisecond, started: started}

	_, err := m.StartRun(context.Background(), StartOptions{
		IssueRef:     ref,
		Adapter:      adapter,
		Request:      provider.Request{TaskID: "t1", Prompt: "go"},
		ArtifactPath: filepath.Join(t.TempDir(), "artifact.json"),
	})
	require.NoError(t, err)
	<-started

	_, err = m.StartRun(context.Background(), StartOptions{
		IssueRef:     ref,
		Adapter:      adapter,
		Request:      provider.Request{TaskID: "t2", Prompt: "go"},
		ArtifactPath: filepath.Join(t.TempDir(), "artifact2.json"),
	})
	assert.Error(t, err)
}

func TestStopRunCancelsAndMarksCancelled(t *testing.T) {
	hub := eventhub.New()
	m := NewManager(hub)
	ref := domain.IssueRef{Owner: "acme", Repo: "widget", Number: 2}
	started := make(chan struct{})
	adapter := &fakeAdapter{delay: 2 * time.Second, started: started}

	h, err := m.StartRun(context.Background(), StartOptions{
		IssueRef:     ref,
		Adapter:      adapter,
		Request:      provider.Request{TaskID: "t1", Prompt: "go"},
		ArtifactPath: filepath.Join(t.TempDir(), "artifact.json"),
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, m.StopRun(ref, true))
	waitUntilTerminal(t, h)
	assert.Equal(t, StateCanceled, h.State())
}

func TestRunBatchBoundsConcurrencyAndSelectsReadySet(t *testing.T) {
	m := NewManager(eventhub.New())
	nodes := []scheduler.Node{
		{ID: "a", Status: scheduler.StatusPending},
		{ID: "b", Status: scheduler.StatusPending},
		{ID: "c", DependsOn: []string{"a"}, Status: scheduler.StatusPending},
	}
	graph, err := scheduler.ValidateGraph(nodes)
	require.NoError(t, err)

	var inFlight, maxInFlight int32
	dispatch := func(ctx context.Context, node scheduler.Node) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if n <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	selected, err := m.RunBatch(context.Background(), graph, 2, dispatch)
	require.NoError(t, err)
	assert.Len(t, selected, 2) // only a and b are ready; c depends on a
	assert.LessOrEqual(t, int(maxInFlight), 2)
}

func TestRunBatchPropagatesDispatchError(t *testing.T) {
	m := NewManager(eventhub.New())
	graph, err := scheduler.ValidateGraph([]scheduler.Node{{ID: "a", Status: scheduler.StatusPending}})
	require.NoError(t, err)

	_, err = m.RunBatch(context.Background(), graph, 2, func(ctx context.Context, node scheduler.Node) error {
		return assert.AnError
	})
	assert.Error(t, err)
}

func TestStopRunOnUnknownIssueIsNoop(t *testing.T) {
	m := NewManager(eventhub.New())
	err := m.StopRun(domain.IssueRef{Owner: "a", Repo: "b", Number: 1}, false)
	assert.NoError(t, err)
}

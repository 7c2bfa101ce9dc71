package output

import (
	"sync"
	"time"

	"jeeves/internal/atomicfile"
	jerrors "jeeves/internal/errors"
)

// DefaultDebounce is the default write-coalescing window.
const DefaultDebounce = 750 * time.Millisecond

// Writer accumulates one run's messages and tool calls in memory and
// flushes the artifact to disk on a debounced timer, with a forced final
// write on Finalize. It is safe for concurrent use by a single producer
// goroutine feeding AppendMessage/UpsertToolCall.
type Writer struct {
	path     string
	debounce time.Duration

	mu       sync.Mutex
	artifact Artifact
	toolIdx  map[string]int
	timer    *time.Timer
	started  time.Time
	closed   bool
}

// New creates a Writer for path, starting a fresh artifact with sessionID
// and the given start time.
func New(path, sessionID string, startedAt time.Time, debounce time.Duration) *Writer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Writer{
		path:     path,
		debounce: debounce,
		started:  startedAt,
		toolIdx:  make(map[string]int),
		artifact: Artifact{
			Schema:    SchemaVersion,
			SessionID: sessionID,
			StartedAt: startedAt,
		},
	}
}

// AppendMessage appends a message and schedules a debounced flush.
func (w *Writer) AppendMessage(msg Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.artifact.Messages = append(w.artifact.Messages, msg)
	w.artifact.Stats.MessageCount = len(w.artifact.Messages)
	w.scheduleFlushLocked()
}

// UpsertToolCall inserts a new tool_use entry, or — when call.ToolUseID
// matches a prior entry (a tool_result line) — updates that entry in place,
// per the spec's "update in place by id" contract.
func (w *Writer) UpsertToolCall(call ToolCall) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if idx, ok := w.toolIdx[call.ToolUseID]; ok {
		existing := w.artifact.ToolCalls[idx]
		merged := mergeToolCall(existing, call)
		w.artifact.ToolCalls[idx] = merged
	} else {
		w.toolIdx[call.ToolUseID] = len(w.artifact.ToolCalls)
		w.artifact.ToolCalls = append(w.artifact.ToolCalls, call)
	}
	w.artifact.Stats.ToolCallCount = len(w.artifact.ToolCalls)
	w.scheduleFlushLocked()
}

// mergeToolCall layers call's non-zero fields onto existing, preserving
// fields call leaves unset (e.g. a tool_result line carries no Input).
func mergeToolCall(existing, call ToolCall) ToolCall {
	out := existing
	if call.Name != "" {
		out.Name = call.Name
	}
	if call.Input != nil {
		out.Input = call.Input
	}
	if call.DurationMS != nil {
		out.DurationMS = call.DurationMS
	}
	if call.IsError != nil {
		out.IsError = call.IsError
	}
	if call.ResponseText != "" {
		out.ResponseText = call.ResponseText
	}
	if call.ResponseTruncated != nil {
		out.ResponseTruncated = call.ResponseTruncated
	}
	if call.Compression != nil {
		out.Compression = call.Compression
	}
	return out
}

// SetUsage records token/cost stats surfaced from the provider's usage
// events.
func (w *Writer) SetUsage(inputTokens, outputTokens, cacheRead, cacheCreation *int64, costUSD *float64, numTurns *int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.artifact.Stats.InputTokens = inputTokens
	w.artifact.Stats.OutputTokens = outputTokens
	w.artifact.Stats.CacheReadInputTokens = cacheRead
	w.artifact.Stats.CacheCreationInputTokens = cacheCreation
	w.artifact.Stats.TotalCostUSD = costUSD
	w.artifact.Stats.NumTurns = numTurns
	w.scheduleFlushLocked()
}

func (w *Writer) scheduleFlushLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		_ = w.flush()
	})
}

func (w *Writer) flush() error {
	w.mu.Lock()
	artifact := w.artifact
	path := w.path
	w.mu.Unlock()
	if err := atomicfile.WriteJSONAtomic(path, artifact); err != nil {
		return jerrors.Wrap(jerrors.KindIO, "output.Writer.flush", err)
	}
	return nil
}

// Finalize sets EndedAt/Success/Error, cancels any pending debounce timer,
// and forces a final write to disk.
func (w *Writer) Finalize(endedAt time.Time, success bool, errMsg, errType string) error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	ended := endedAt
	w.artifact.EndedAt = &ended
	w.artifact.Success = &success
	w.artifact.Error = errMsg
	w.artifact.ErrorType = errType
	w.artifact.Stats.DurationSeconds = endedAt.Sub(w.started).Seconds()
	w.closed = true
	w.mu.Unlock()
	return w.flush()
}

// Snapshot returns a copy of the artifact as it currently stands, for
// callers that need to inspect in-flight state (e.g. diagnostics).
func (w *Writer) Snapshot() Artifact {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.artifact
	out.Messages = append([]Message(nil), w.artifact.Messages...)
	out.ToolCalls = append([]ToolCall(nil), w.artifact.ToolCalls...)
	return out
}

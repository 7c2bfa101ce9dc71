// Package output implements the output writer/tailer (C9): a single writer
// per run producing the jeeves.sdk.v1 artifact, debounced to disk, plus a
// log tailer that tracks a file offset and resets on truncation/replacement.
package output

import "time"

// SchemaVersion is the artifact's schema tag.
const SchemaVersion = "jeeves.sdk.v1"

// Message is one entry of the artifact's messages array.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content,omitempty"`
}

// ToolCall is one entry of the artifact's tool_calls array. Entries are
// updated in place (matched by ToolUseID) when a tool_result line arrives
// for a prior tool_use.
type ToolCall struct {
	Name              string       `json:"name"`
	Input             any          `json:"input,omitempty"`
	ToolUseID         string       `json:"tool_use_id"`
	Timestamp         time.Time    `json:"timestamp"`
	DurationMS        *int64       `json:"duration_ms,omitempty"`
	IsError           *bool        `json:"is_error,omitempty"`
	ResponseText      string       `json:"response_text,omitempty"`
	ResponseTruncated *bool        `json:"response_truncated,omitempty"`
	Compression       *Compression `json:"compression,omitempty"`
}

// Compression describes an extractive summary applied to an oversized tool
// response, per the tool-call summarisation contract.
type Compression struct {
	Mode              string `json:"mode"`
	RawCharCount      int    `json:"raw_char_count"`
	SummaryCharCount  int    `json:"summary_char_count"`
	TruncationReason  string `json:"truncation_reason,omitempty"`
	StructuredSummary string `json:"structured_summary,omitempty"`
}

// Stats summarises a run's messages, tool calls, and token/cost usage.
type Stats struct {
	MessageCount             int      `json:"message_count"`
	ToolCallCount            int      `json:"tool_call_count"`
	DurationSeconds          float64  `json:"duration_seconds"`
	InputTokens              *int64   `json:"input_tokens,omitempty"`
	OutputTokens             *int64   `json:"output_tokens,omitempty"`
	CacheReadInputTokens     *int64   `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens *int64   `json:"cache_creation_input_tokens,omitempty"`
	TotalCostUSD             *float64 `json:"total_cost_usd,omitempty"`
	NumTurns                 *int     `json:"num_turns,omitempty"`
}

// Artifact is the jeeves.sdk.v1 document produced for one run.
type Artifact struct {
	Schema    string     `json:"schema"`
	SessionID string     `json:"session_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Success   *bool      `json:"success,omitempty"`
	Messages  []Message  `json:"messages"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Stats     Stats      `json:"stats"`
	Error     string     `json:"error,omitempty"`
	ErrorType string     `json:"error_type,omitempty"`
}

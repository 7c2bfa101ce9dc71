package codex

import (
	"encoding/json"
	"strings"
)

// codexEvent is the decoded shape of one `codex exec --json` output line.
type codexEvent struct {
	Type     string
	Text     string
	Tokens   int
	ToolCall bool
}

func parseEvent(line []byte) (codexEvent, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return codexEvent{}, err
	}
	msgType, _ := raw["type"].(string)
	event := codexEvent{Type: strings.TrimSpace(msgType)}

	switch event.Type {
	case "token_count":
		if info, ok := raw["info"].(map[string]any); ok {
			if usage, ok := info["total_token_usage"].(map[string]any); ok {
				event.Tokens = numberAsInt(usage["total_tokens"])
			}
		}
	case "agent_message", "agent_message_delta":
		event.Text = firstNonEmpty(
			stringField(raw, "delta"),
			stringField(raw, "text"),
			stringField(raw, "content"),
		)
	case "task_started", "task_complete":
		event.ToolCall = true
	default:
		if strings.Contains(event.Type, "tool") {
			event.ToolCall = true
		}
	}
	return event, nil
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func numberAsInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

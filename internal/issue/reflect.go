package issue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"jeeves/internal/domain"
	jerrors "jeeves/internal/errors"
	"jeeves/internal/provider"
	"jeeves/internal/store"
)

// ReflectInput is the trajectory-reflection contract's input (spec §4.9):
// an objective, the memory/task facts gathered so far, and the previous
// reflection snapshot (nil on an issue's first reflection).
type ReflectInput struct {
	Objective string
	Memory    []store.MemoryRow
	Tasks     []store.TaskFileItem
	Snapshot  map[string]any
}

// DroppedItem is one entry of ReflectResult.Dropped: something the
// reflection considered and discarded, with the reason given.
type DroppedItem struct {
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ReflectResult is the trajectory-reflection contract's validated output.
type ReflectResult struct {
	CurrentObjective      string        `json:"current_objective"`
	OpenHypotheses        []string      `json:"open_hypotheses"`
	Blockers              []string      `json:"blockers"`
	NextActions           []string      `json:"next_actions"`
	UnresolvedQuestions   []string      `json:"unresolved_questions"`
	RequiredEvidenceLinks []string      `json:"required_evidence_links"`
	Dropped               []DroppedItem `json:"dropped"`
}

// Reflect runs the trajectory-reflection contract (spec §4.9): it builds a
// prompt from input, asks adapter for a JSON object, and validates that
// every reflected item traces back to a source token present in the
// provided memory/tasks/snapshot. Failure modes: a blank assistant answer
// fails as "no_assistant_output", a non-JSON answer fails as
// "invalid_json", and an answer whose content doesn't trace to any source
// token fails as "validation_failed".
func (s *Service) Reflect(ctx context.Context, ref domain.IssueRef, adapter provider.Adapter, input ReflectInput) (*ReflectResult, error) {
	result, err := adapter.Execute(ctx, provider.Request{
		TaskID:   "reflect",
		IssueRef: ref.String(),
		Prompt:   buildReflectPrompt(input),
		Kind:     adapter.Kind(),
	})
	if err != nil {
		return nil, jerrors.Wrap(jerrors.KindProvider, "issue.Reflect", err)
	}
	if strings.TrimSpace(result.Answer) == "" {
		return nil, jerrors.Validation("issue.Reflect", "no_assistant_output")
	}

	var parsed ReflectResult
	if err := json.Unmarshal([]byte(result.Answer), &parsed); err != nil {
		return nil, jerrors.Validation("issue.Reflect", "invalid_json: "+err.Error())
	}

	if !reflectItemsTraceToSource(parsed, reflectSourceTokens(input)) {
		return nil, jerrors.Validation("issue.Reflect", "validation_failed")
	}

	return &parsed, nil
}

// buildReflectPrompt renders the objective, memory entries, tasks, and
// previous snapshot into the text the provider reflects over.
func buildReflectPrompt(input ReflectInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "objective: %s\n\n", input.Objective)

	fmt.Fprintf(&b, "memory:\n")
	for _, m := range input.Memory {
		fmt.Fprintf(&b, "  [%s] %s = %v\n", m.Scope, m.Key, m.Value)
	}

	fmt.Fprintf(&b, "\ntasks:\n")
	for _, t := range input.Tasks {
		fmt.Fprintf(&b, "  %s (%s): %s — %s\n", t.TaskID, t.Status, t.Title, t.Summary)
	}

	if len(input.Snapshot) > 0 {
		snapshotJSON, _ := json.Marshal(input.Snapshot)
		fmt.Fprintf(&b, "\nprevious_snapshot: %s\n", snapshotJSON)
	}

	fmt.Fprintf(&b, "\nRespond with a single JSON object with fields: "+
		"current_objective, open_hypotheses, blockers, next_actions, "+
		"unresolved_questions, required_evidence_links, dropped[]{value,reason}. "+
		"Every value must be traceable to the objective, memory, tasks, or "+
		"previous_snapshot above — do not introduce facts not present there.")
	return b.String()
}

// reflectMinTokenLen is the shortest word counted as a traceable source
// token; shorter words (articles, prepositions) are too common to anchor
// a trace check.
const reflectMinTokenLen = 4

// reflectSourceTokens collects every word of at least reflectMinTokenLen
// characters from input's objective, memory values, task titles/
// summaries, and previous snapshot, lowercased, as the vocabulary a
// reflected item must draw from.
func reflectSourceTokens(input ReflectInput) map[string]struct{} {
	tokens := make(map[string]struct{})
	addTokens := func(s string) {
		for _, word := range strings.Fields(s) {
			word = strings.ToLower(strings.Trim(word, ".,:;!?()[]{}\"'"))
			if len(word) >= reflectMinTokenLen {
				tokens[word] = struct{}{}
			}
		}
	}

	addTokens(input.Objective)
	for _, m := range input.Memory {
		addTokens(fmt.Sprintf("%v", m.Value))
		addTokens(m.Key)
	}
	for _, t := range input.Tasks {
		addTokens(t.Title)
		addTokens(t.Summary)
	}
	if len(input.Snapshot) > 0 {
		snapshotJSON, _ := json.Marshal(input.Snapshot)
		addTokens(string(snapshotJSON))
	}
	return tokens
}

// reflectItemsTraceToSource reports whether every non-empty item across
// all of result's reflected fields shares at least one source token with
// tokens. An item with no word at all of reflectMinTokenLen or longer
// cannot trace to anything and fails the check.
func reflectItemsTraceToSource(result ReflectResult, tokens map[string]struct{}) bool {
	items := make([]string, 0, 8+len(result.Dropped))
	items = append(items, result.CurrentObjective)
	items = append(items, result.OpenHypotheses...)
	items = append(items, result.Blockers...)
	items = append(items, result.NextActions...)
	items = append(items, result.UnresolvedQuestions...)
	items = append(items, result.RequiredEvidenceLinks...)
	for _, d := range result.Dropped {
		items = append(items, d.Value)
	}

	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		if !itemTracesToSource(item, tokens) {
			return false
		}
	}
	return true
}

func itemTracesToSource(item string, tokens map[string]struct{}) bool {
	for _, word := range strings.Fields(item) {
		word = strings.ToLower(strings.Trim(word, ".,:;!?()[]{}\"'"))
		if len(word) < reflectMinTokenLen {
			continue
		}
		if _, ok := tokens[word]; ok {
			return true
		}
	}
	return false
}

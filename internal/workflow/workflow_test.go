package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
name: fix-issue
version: "1"
start: plan
phases:
  plan:
    type: execute
    provider: claude_code
    prompt: "draft a plan"
    transitions:
      - to: build
        auto: true
        priority: 0
  build:
    type: execute
    provider: claude_code
    prompt: "implement the plan"
    transitions:
      - to: review
        auto: true
        priority: 0
  review:
    type: evaluate
    provider: claude_code
    prompt: "review the diff"
    transitions:
      - to: build
        when: "review.approved == false"
        priority: 0
      - to: done
        when: "review.approved == true"
        auto: true
        priority: 1
  done:
    type: terminal
`

func TestParseValidWorkflow(t *testing.T) {
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, "fix-issue", w.Name)
	assert.Equal(t, "plan", w.Start)
	assert.Len(t, w.Phases, 4)
}

func TestParseRejectsUndeclaredStart(t *testing.T) {
	doc := `
name: broken
start: nope
phases:
  a:
    type: terminal
`
	_, err := Parse([]byte(doc))
	assert.Error(t, err)
}

func TestParseRejectsDanglingTransition(t *testing.T) {
	doc := `
name: broken
start: a
phases:
  a:
    type: execute
    prompt: "x"
    transitions:
      - to: ghost
        priority: 0
`
	_, err := Parse([]byte(doc))
	assert.Error(t, err)
}

func TestParseSortsTransitionsByPriority(t *testing.T) {
	doc := `
name: ordering
start: a
phases:
  a:
    type: execute
    prompt: "x"
    transitions:
      - to: b
        priority: 5
      - to: c
        priority: 1
  b:
    type: terminal
  c:
    type: terminal
`
	w, err := Parse([]byte(doc))
	require.NoError(t, err)
	ts := w.Phases["a"].Transitions
	require.Len(t, ts, 2)
	assert.Equal(t, "c", ts[0].To)
	assert.Equal(t, "b", ts[1].To)
}

func TestAdvanceNoMatchLeavesPhaseStanding(t *testing.T) {
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	result, err := Advance(w, "review", map[string]any{"review": map[string]any{"approved": nil}})
	require.NoError(t, err)
	assert.True(t, result.NoMatch)
}

func TestAdvanceTerminalPhase(t *testing.T) {
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	result, err := Advance(w, "done", nil)
	require.NoError(t, err)
	assert.True(t, result.WasTerminal)
}

func TestRunToRestFollowsAutoChainAndStopsAtNonAuto(t *testing.T) {
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	// plan -auto-> build is a single auto hop; build's only transition is
	// auto too, landing on review, whose non-auto branch requires a
	// decision so RunToRest should stop there when approved is unset.
	final, hops, err := RunToRest(w, "plan", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "review", final)
	assert.Equal(t, 2, hops)
}

func TestRunToRestFollowsApprovalToDone(t *testing.T) {
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	final, _, err := RunToRest(w, "review", map[string]any{"review": map[string]any{"approved": true}})
	require.NoError(t, err)
	assert.Equal(t, "done", final)
}

func TestAdvanceUnknownPhaseErrors(t *testing.T) {
	w, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	_, err = Advance(w, "ghost", nil)
	assert.Error(t, err)
}

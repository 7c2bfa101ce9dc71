package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalEmptyExprIsTrue(t *testing.T) {
	assert.True(t, Eval("", map[string]any{}))
	assert.True(t, Eval("   ", nil))
}

func TestEvalBarePathTruthiness(t *testing.T) {
	status := map[string]any{"review": map[string]any{"approved": true}, "count": 0}
	assert.True(t, Eval("review.approved", status))
	assert.False(t, Eval("count", status))
	assert.False(t, Eval("missing.path", status))
}

func TestEvalEquality(t *testing.T) {
	status := map[string]any{"phase": "review", "attempts": float64(3)}
	assert.True(t, Eval(`phase == "review"`, status))
	assert.True(t, Eval(`phase != "build"`, status))
	assert.True(t, Eval("attempts == 3", status))
	assert.False(t, Eval("attempts == 4", status))
}

func TestEvalNullLiteral(t *testing.T) {
	status := map[string]any{"error": nil}
	assert.True(t, Eval("error == null", status))
	assert.True(t, Eval("error == none", status))
}

func TestOrBindsLooserThanAnd(t *testing.T) {
	status := map[string]any{"a": true, "b": false, "c": true}
	// "a and b or c" must parse as "(a and b) or c", not "a and (b or c)".
	assert.True(t, Eval("a and b or c", status))

	status2 := map[string]any{"a": false, "b": true, "c": false}
	assert.False(t, Eval("a and b or c", status2))
}

func TestEvalQuotedLiteralContainingOperatorWords(t *testing.T) {
	status := map[string]any{"label": "fix and verify"}
	assert.True(t, Eval(`label == "fix and verify"`, status))
}

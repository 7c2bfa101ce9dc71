package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeDuplicateGrepRate(t *testing.T) {
	calls := []ToolCall{
		{Name: "grep", Pattern: "foo", Path: "a.go"},
		{Name: "grep", Pattern: "foo", Path: "a.go"},
		{Name: "grep", Pattern: "bar", Path: "b.go"},
		{Name: "read", Path: "a.go"},
	}
	s := Compute(calls)
	assert.Equal(t, 3, s.GrepCalls)
	assert.Equal(t, 1, s.ReadCalls)
	assert.Equal(t, 1, s.DuplicateGrepCalls)
	assert.InDelta(t, 1.0/3.0, s.DuplicateQueryRate, 0.001)
	assert.NotEmpty(t, s.Warnings)
}

func TestComputeWarnsOnGrepWithoutRead(t *testing.T) {
	calls := []ToolCall{
		{Name: "grep", Pattern: "a", Path: "x"},
		{Name: "grep", Pattern: "b", Path: "y"},
		{Name: "grep", Pattern: "c", Path: "z"},
	}
	s := Compute(calls)
	assert.Equal(t, 0, s.ReadCalls)
	found := false
	for _, w := range s.Warnings {
		if w != "" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestComputeTracksUnresolvedHandles(t *testing.T) {
	calls := []ToolCall{
		{Name: "read", RetrievalHandle: "h1"},
		{Name: "read", RetrievalHandle: "h2"},
		{Name: "grep", ReferencesArtifact: "h1"},
	}
	s := Compute(calls)
	assert.Equal(t, 2, s.RetrievalHandleGeneratedCount)
	assert.Equal(t, 1, s.RetrievalHandleResolvedCount)
	assert.Equal(t, 1, s.UnresolvedHandleCount)
}

func TestMergeSummaryAccumulatesAndTracksMax(t *testing.T) {
	a := IterationSummary{GrepCalls: 2, DuplicateQueryRate: 0.1, LocatorToReadRatio: 1.0}
	b := IterationSummary{GrepCalls: 3, DuplicateQueryRate: 0.5, LocatorToReadRatio: 0.2}
	merged := MergeSummary(a, b)
	assert.Equal(t, 5, merged.GrepCalls)
	assert.InDelta(t, 0.5, merged.DuplicateQueryRate, 0.001)
	assert.InDelta(t, 1.0, merged.LocatorToReadRatio, 0.001)
}

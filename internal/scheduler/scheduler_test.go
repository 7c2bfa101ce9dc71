package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGraphRejectsDuplicateID(t *testing.T) {
	_, err := ValidateGraph([]Node{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
}

func TestValidateGraphRejectsMissingDependency(t *testing.T) {
	_, err := ValidateGraph([]Node{{ID: "a", DependsOn: []string{"ghost"}}})
	assert.Error(t, err)
}

func TestValidateGraphRejectsCycle(t *testing.T) {
	_, err := ValidateGraph([]Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"c"}},
		{ID: "c", DependsOn: []string{"a"}},
	})
	assert.Error(t, err)
}

func TestValidateGraphAcceptsDiamond(t *testing.T) {
	g, err := ValidateGraph([]Node{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"a"}},
		{ID: "d", DependsOn: []string{"b", "c"}},
	})
	require.NoError(t, err)
	assert.Len(t, g.Nodes(), 4)
}

// TestSelectReadyMatchesSpecScenario reproduces the worked example: tasks
// A(pending,[]), B(pending,[A]), C(failed,[A]), D(in_progress,[]),
// maxParallelTasks=2. Expect [A] first (A is ready; C's dep not passed; D
// excluded; B blocked). After A -> passed: [C, B] (failed ranks before
// pending).
func TestSelectReadyMatchesSpecScenario(t *testing.T) {
	nodes := []Node{
		{ID: "A", Status: StatusPending},
		{ID: "B", Status: StatusPending, DependsOn: []string{"A"}},
		{ID: "C", Status: StatusFailed, DependsOn: []string{"A"}},
		{ID: "D", Status: StatusInProgress},
	}
	g, err := ValidateGraph(nodes)
	require.NoError(t, err)

	selected := g.SelectReady(2)
	require.Len(t, selected, 1)
	assert.Equal(t, "A", selected[0].ID)

	nodes[0].Status = StatusPassed
	g2, err := ValidateGraph(nodes)
	require.NoError(t, err)
	selected2 := g2.SelectReady(2)
	require.Len(t, selected2, 2)
	assert.Equal(t, "C", selected2[0].ID)
	assert.Equal(t, "B", selected2[1].ID)
}

func TestSelectReadyRespectsMaxParallelCap(t *testing.T) {
	g, err := ValidateGraph([]Node{
		{ID: "a", Status: StatusPending},
		{ID: "b", Status: StatusPending},
		{ID: "c", Status: StatusPending},
	})
	require.NoError(t, err)
	assert.Len(t, g.SelectReady(1), 1)
	assert.Len(t, g.SelectReady(2), 2)
}

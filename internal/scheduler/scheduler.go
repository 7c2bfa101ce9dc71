// Package scheduler validates a task dependency graph (C7) and selects the
// deterministic ready set for parallel execution, up to a configured cap.
//
// The scheduler works over its own small status vocabulary —
// pending/in_progress/passed/failed — rather than jeeves/internal/domain's
// richer Task lifecycle, because that is the exact vocabulary the ready-set
// rule is defined against; internal/issue is responsible for mapping a
// domain.Task's status onto scheduler.Status when building a Graph.
package scheduler

import (
	"fmt"
	"sort"

	jerrors "jeeves/internal/errors"
)

// Status is a task's position in the scheduler's own lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusPassed     Status = "passed"
	StatusFailed     Status = "failed"
)

// Node is one task in the dependency graph, as seen by the scheduler.
type Node struct {
	ID        string
	DependsOn []string
	Status    Status
	// Index is the task's position in its source list; it breaks ties in
	// select_ready and is independent of map/slice iteration order.
	Index int
}

// Graph is a validated task set ready for ready-set selection.
type Graph struct {
	nodes []Node
	byID  map[string]Node
}

// ValidateGraph runs the three required checks, in order: unique ids,
// every dependency resolves to a declared node, and the dependency edges
// form no cycle (DFS three-colour, reporting the cycle path on failure).
func ValidateGraph(nodes []Node) (*Graph, error) {
	byID := make(map[string]Node, len(nodes))
	for i, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return nil, jerrors.New(jerrors.KindScheduler, "scheduler.ValidateGraph", fmt.Sprintf("DUPLICATE_ID: %s", n.ID))
		}
		n.Index = i
		byID[n.ID] = n
	}
	for _, n := range byID {
		for _, dep := range n.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, jerrors.New(jerrors.KindScheduler, "scheduler.ValidateGraph", fmt.Sprintf("MISSING_DEPENDENCY: %s -> %s", n.ID, dep))
			}
		}
	}
	if cycle := findCycle(byID); cycle != nil {
		return nil, jerrors.New(jerrors.KindScheduler, "scheduler.ValidateGraph", fmt.Sprintf("CYCLE_DETECTED: %v", cycle))
	}
	ordered := make([]Node, 0, len(byID))
	for _, n := range byID {
		ordered = append(ordered, n)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	return &Graph{nodes: ordered, byID: byID}, nil
}

const (
	colorWhite = 0
	colorGray  = 1
	colorBlack = 2
)

// findCycle performs a DFS three-colour walk over the dependency edges and
// returns the offending path (node ids) if a cycle exists, or nil.
func findCycle(byID map[string]Node) []string {
	color := make(map[string]int, len(byID))
	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = colorGray
		path = append(path, id)
		for _, dep := range byID[id].DependsOn {
			switch color[dep] {
			case colorGray:
				return append(append([]string(nil), path...), dep)
			case colorWhite:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = colorBlack
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == colorWhite {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func isReady(n Node, byID map[string]Node) bool {
	if n.Status != StatusPending && n.Status != StatusFailed {
		return false
	}
	for _, dep := range n.DependsOn {
		if byID[dep].Status != StatusPassed {
			return false
		}
	}
	return true
}

func statusRank(s Status) int {
	if s == StatusFailed {
		return 0
	}
	return 1 // pending
}

// SelectReady filters to ready tasks (pending|failed, all deps passed),
// sorts by (status rank failed<pending, source index ascending, id
// ascending), and returns the first maxParallelTasks.
func (g *Graph) SelectReady(maxParallelTasks int) []Node {
	var ready []Node
	for _, n := range g.nodes {
		if isReady(n, g.byID) {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
			return ra < rb
		}
		if a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.ID < b.ID
	})
	if maxParallelTasks >= 0 && len(ready) > maxParallelTasks {
		ready = ready[:maxParallelTasks]
	}
	return ready
}

// Nodes returns the validated graph's nodes in source order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

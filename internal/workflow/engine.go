package workflow

import (
	"fmt"

	jerrors "jeeves/internal/errors"
	"jeeves/internal/guard"
)

// AdvanceResult reports the outcome of one transition-selection attempt.
type AdvanceResult struct {
	Matched    bool
	NextPhase  string
	Auto       bool
	NoMatch    bool // true when no transition's guard matched and the phase stands
	WasTerminal bool
}

// Advance evaluates phaseName's transitions in priority order against
// status and returns the first match. It does not mutate status or the
// workflow; callers (internal/issue) apply the result. If the phase is
// terminal (no transitions declared) Advance reports WasTerminal.
func Advance(w *Workflow, phaseName string, status map[string]any) (AdvanceResult, error) {
	phase, ok := w.Phases[phaseName]
	if !ok {
		return AdvanceResult{}, jerrors.NotFound("workflow.Advance", fmt.Sprintf("phase %q not declared", phaseName))
	}
	if phase.Type == PhaseTerminal || len(phase.Transitions) == 0 {
		return AdvanceResult{WasTerminal: true}, nil
	}
	for _, t := range phase.Transitions {
		if guard.Eval(t.When, status) {
			return AdvanceResult{Matched: true, NextPhase: t.To, Auto: t.Auto}, nil
		}
	}
	return AdvanceResult{NoMatch: true}, nil
}

// RunToRest repeatedly calls Advance, following auto transitions within
// the same iteration, and stops at the first non-auto transition, the
// first no-match, or a terminal phase. It returns the final phase name and
// how many transitions were taken.
func RunToRest(w *Workflow, startPhase string, status map[string]any) (finalPhase string, hops int, err error) {
	current := startPhase
	for {
		result, advErr := Advance(w, current, status)
		if advErr != nil {
			return current, hops, advErr
		}
		if result.WasTerminal || result.NoMatch {
			return current, hops, nil
		}
		current = result.NextPhase
		hops++
		if !result.Auto {
			return current, hops, nil
		}
		// Guard against runaway auto-transition loops (e.g. a cycle of
		// always-true guards) by bounding hops to twice the phase count.
		if hops > len(w.Phases)*2 {
			return current, hops, jerrors.New(jerrors.KindInternal, "workflow.RunToRest", "auto-transition loop suspected, aborting")
		}
	}
}

package workflow

import (
	"sort"

	"gopkg.in/yaml.v3"

	jerrors "jeeves/internal/errors"
)

// Parse decodes a workflow YAML document and validates it. Transitions
// within each phase are sorted ascending by Priority so the engine can
// iterate them in order without re-sorting on every evaluation.
func Parse(doc []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(doc, &w); err != nil {
		return nil, jerrors.Wrap(jerrors.KindValidation, "workflow.Parse", err)
	}
	for name, phase := range w.Phases {
		sorted := append([]Transition(nil), phase.Transitions...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
		phase.Transitions = sorted
		w.Phases[name] = phase
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

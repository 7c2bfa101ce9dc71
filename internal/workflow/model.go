// Package workflow holds the declarative phase/transition model (C4), its
// YAML document loader, and the deterministic transition-selection engine
// (C6) built on top of internal/guard.
package workflow

import (
	"fmt"

	jerrors "jeeves/internal/errors"
)

// PhaseType classifies what a phase does when the engine enters it.
type PhaseType string

const (
	PhaseExecute  PhaseType = "execute"  // invoke a provider with Prompt
	PhaseEvaluate PhaseType = "evaluate" // invoke a provider to judge prior output
	PhaseScript   PhaseType = "script"   // run Command via the script provider
	PhaseTerminal PhaseType = "terminal" // no transitions; run ends here
)

// Transition is one edge out of a phase, evaluated in ascending Priority.
type Transition struct {
	To       string `yaml:"to" json:"to"`
	When     string `yaml:"when,omitempty" json:"when,omitempty"`
	Auto     bool   `yaml:"auto,omitempty" json:"auto,omitempty"`
	Priority int    `yaml:"priority" json:"priority"`
}

// Phase is one node in the workflow graph.
type Phase struct {
	Type          PhaseType    `yaml:"type" json:"type"`
	Provider      string       `yaml:"provider,omitempty" json:"provider,omitempty"`
	Prompt        string       `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Command       string       `yaml:"command,omitempty" json:"command,omitempty"`
	Model         string       `yaml:"model,omitempty" json:"model,omitempty"`
	AllowedWrites []string     `yaml:"allowed_writes,omitempty" json:"allowed_writes,omitempty"`
	Transitions   []Transition `yaml:"transitions,omitempty" json:"transitions,omitempty"`
	StatusMapping string       `yaml:"status_mapping,omitempty" json:"status_mapping,omitempty"`
	OutputFile    string       `yaml:"output_file,omitempty" json:"output_file,omitempty"`
}

// defaultAllowedWrites is applied when a phase does not declare its own,
// per the spec's "default .jeeves/*" rule.
var defaultAllowedWrites = []string{".jeeves/*"}

// Writes returns the phase's allowed-write globs, falling back to the
// default scope when none are declared.
func (p Phase) Writes() []string {
	if len(p.AllowedWrites) > 0 {
		return p.AllowedWrites
	}
	return defaultAllowedWrites
}

// Workflow is a declarative, YAML-authored phase graph.
type Workflow struct {
	Name    string           `yaml:"name" json:"name"`
	Version string           `yaml:"version" json:"version"`
	Start   string           `yaml:"start" json:"start"`
	Phases  map[string]Phase `yaml:"phases" json:"phases"`
}

// Validate checks the structural invariants named in the workflow model's
// design: start exists, every transition target exists, execute/evaluate
// phases carry a prompt, script phases carry a command.
func (w Workflow) Validate() error {
	if _, ok := w.Phases[w.Start]; !ok {
		return jerrors.Validation("workflow.Validate", fmt.Sprintf("start phase %q is not declared", w.Start))
	}
	for name, phase := range w.Phases {
		switch phase.Type {
		case PhaseExecute, PhaseEvaluate:
			if phase.Prompt == "" {
				return jerrors.Validation("workflow.Validate", fmt.Sprintf("phase %q of type %q requires a prompt", name, phase.Type))
			}
		case PhaseScript:
			if phase.Command == "" {
				return jerrors.Validation("workflow.Validate", fmt.Sprintf("phase %q of type %q requires a command", name, phase.Type))
			}
		case PhaseTerminal:
			if len(phase.Transitions) > 0 {
				return jerrors.Validation("workflow.Validate", fmt.Sprintf("terminal phase %q must not declare transitions", name))
			}
		default:
			return jerrors.Validation("workflow.Validate", fmt.Sprintf("phase %q has unknown type %q", name, phase.Type))
		}
		for _, t := range phase.Transitions {
			if _, ok := w.Phases[t.To]; !ok {
				return jerrors.Validation("workflow.Validate", fmt.Sprintf("phase %q transition targets undeclared phase %q", name, t.To))
			}
		}
	}
	return nil
}

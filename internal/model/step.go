package model

import "fmt"

// StepDef is one step record as loaded from a workflow definition file,
// before graph construction. Fields mirror the recognized definition keys.
type StepDef struct {
	// ID is the unique step identifier (step_id).
	ID string
	// Run is the opaque command string handed to the injected action.
	Run string
	// DependsOn lists step ids that must finish terminal-success first.
	// Order is preserved from the definition; it drives deterministic
	// propagation and snapshot output.
	DependsOn []string
	// If is the raw condition expression, empty when always-true.
	If string
	// OnFailure is the raw on_failure field, empty for the default policy.
	OnFailure string
	// ParallelWith is an advisory hint carried through from the definition.
	// Scheduling ignores it: dependency structure alone determines which
	// steps may run concurrently.
	ParallelWith []string
}

// Workflow is a named, ordered collection of step definitions.
type Workflow struct {
	Name  string
	Steps []StepDef
}

// ValidationError reports a structural problem in a workflow definition:
// a missing required field, a duplicate id, or a reference to an unknown id.
// It is always surfaced before any step runs.
type ValidationError struct {
	StepID string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.StepID == "" {
		return fmt.Sprintf("invalid workflow definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid step %q: %s", e.StepID, e.Reason)
}

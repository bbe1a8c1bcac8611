package graph

import (
	"fmt"

	"github.com/vk/stepflow/internal/condition"
	"github.com/vk/stepflow/internal/model"
)

// Step is one node of the built graph: the immutable definition plus the
// mutable run-time state. Status and Attempt are guarded by the engine's
// lock; nothing else may write them.
type Step struct {
	ID        string
	Command   string
	DependsOn []string
	// Condition gates Pending→Ready; nil means always true.
	Condition *condition.Expr
	Policy    model.FailurePolicy

	Status  model.Status
	Attempt int
}

// Graph owns all steps, the declared dependency edges and the derived
// dependents index. Iteration helpers preserve definition order so that
// scheduling and snapshots are deterministic.
type Graph struct {
	steps      map[string]*Step
	order      []string
	dependents map[string][]string
}

// CycleError reports that the dependency edges are not acyclic.
type CycleError struct {
	StepID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected involving step %q", e.StepID)
}

// Get returns the step with the given id, or nil if it does not exist.
func (g *Graph) Get(id string) *Step {
	return g.steps[id]
}

// IDs returns all step ids in definition order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	return len(g.order)
}

// Roots returns the steps with no dependencies, in definition order.
func (g *Graph) Roots() []*Step {
	var roots []*Step
	for _, id := range g.order {
		if st := g.steps[id]; len(st.DependsOn) == 0 {
			roots = append(roots, st)
		}
	}
	return roots
}

// DependenciesOf returns the declared dependency ids of a step, in
// declaration order. The slice is shared; callers must not mutate it.
func (g *Graph) DependenciesOf(id string) []string {
	if st := g.steps[id]; st != nil {
		return st.DependsOn
	}
	return nil
}

// DependentsOf returns the ids of steps that depend on the given step, in
// definition order. The slice is shared; callers must not mutate it.
func (g *Graph) DependentsOf(id string) []string {
	return g.dependents[id]
}

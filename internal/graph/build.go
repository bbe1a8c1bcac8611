package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/stepflow/internal/condition"
	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/model"
)

// Build constructs a validated dependency graph from step definitions.
// Validation failures (duplicate id, unknown dependency, condition
// referencing a non-dependency, malformed policy) and cycles are all
// surfaced here, before anything runs.
func Build(ctx context.Context, defs []model.StepDef) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.", "step_count", len(defs))

	g := &Graph{
		steps:      make(map[string]*Step, len(defs)),
		dependents: make(map[string][]string),
	}

	// First pass: create all steps.
	for _, def := range defs {
		if def.ID == "" {
			return nil, &model.ValidationError{Reason: "step_id is required"}
		}
		if def.Run == "" {
			return nil, &model.ValidationError{StepID: def.ID, Reason: "run is required"}
		}
		if _, exists := g.steps[def.ID]; exists {
			return nil, &model.ValidationError{StepID: def.ID, Reason: "duplicate step_id"}
		}

		policy, err := model.ParseFailurePolicy(def.OnFailure)
		if err != nil {
			return nil, &model.ValidationError{StepID: def.ID, Reason: err.Error()}
		}

		var cond *condition.Expr
		if def.If != "" {
			cond, err = condition.Parse(def.If)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", def.ID, err)
			}
		}

		g.steps[def.ID] = &Step{
			ID:        def.ID,
			Command:   def.Run,
			DependsOn: slices.Clone(def.DependsOn),
			Condition: cond,
			Policy:    policy,
			Status:    model.Pending,
		}
		g.order = append(g.order, def.ID)
	}
	logger.Debug("Build: step creation complete.")

	// Second pass: link dependency edges and derive the dependents index.
	for _, id := range g.order {
		st := g.steps[id]
		for _, depID := range st.DependsOn {
			if depID == id {
				return nil, &CycleError{StepID: id}
			}
			if _, ok := g.steps[depID]; !ok {
				return nil, &model.ValidationError{
					StepID: id,
					Reason: fmt.Sprintf("depends_on references unknown step %q", depID),
				}
			}
			g.dependents[depID] = append(g.dependents[depID], id)
		}
	}
	logger.Debug("Build: dependency linking complete.")

	// Conditions may only reference declared dependencies; anything else is
	// a configuration error caught now, never at evaluation time.
	for _, id := range g.order {
		st := g.steps[id]
		if st.Condition == nil {
			continue
		}
		for _, ref := range st.Condition.References() {
			if !slices.Contains(st.DependsOn, ref) {
				return nil, &model.ValidationError{
					StepID: id,
					Reason: fmt.Sprintf("condition references %q, which is not a declared dependency", ref),
				}
			}
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	logger.Debug("Build: cycle detection passed.")

	return g, nil
}

// detectCycles runs a classic three-color depth-first search over the
// dependency edges.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool, len(g.order))
	temporary := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return &CycleError{StepID: id}
		}
		temporary[id] = true
		for _, depID := range g.steps[id].DependsOn {
			if err := visit(depID); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.order {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

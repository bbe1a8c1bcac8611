package app

import (
	"context"
	"fmt"

	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/engine"
	"github.com/vk/stepflow/internal/graph"
	"github.com/vk/stepflow/internal/render"
	"github.com/vk/stepflow/internal/scheduler"
)

// Run loads the workflow, builds and validates the graph, executes it, and
// writes the final status table and transcript. Validation and cycle errors
// return before anything runs; step failures finish the run and surface as a
// single summarizing error.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.", "path", a.config.WorkflowPath, "policy", a.config.Policy)

	wf, err := a.loader.Load(ctx, a.config.WorkflowPath)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	a.logger.Info("Workflow loaded.", "workflow", wf.Name, "steps", len(wf.Steps))

	g, err := graph.Build(ctx, wf.Steps)
	if err != nil {
		return fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "step_count", g.Len())

	if g.Len() == 0 {
		a.logger.Warn("No steps found in workflow, nothing to execute.")
		return nil
	}

	sched, err := scheduler.New(a.config.Policy, g)
	if err != nil {
		return err
	}

	eng := engine.New(g, sched, a.action,
		engine.WithWorkers(a.config.Workers),
		engine.WithAttemptTimeout(a.config.StepTimeout),
	)

	a.logger.Info("🚀 Starting execution.", "workflow", wf.Name, "policy", a.config.Policy, "workers", a.config.Workers)
	log, err := eng.Run(ctx)
	if err != nil {
		return fmt.Errorf("execution aborted: %w", err)
	}
	a.logger.Info("🏁 Execution finished.", "result", eng.Summary())

	fmt.Fprintln(a.outW, render.StatusTable(eng.Snapshot()))
	fmt.Fprintln(a.outW, render.Transcript(log))
	fmt.Fprintf(a.outW, "Execution order: %s\n", render.ExecutionOrder(log))

	if failed := eng.FailedSteps(); len(failed) > 0 {
		return fmt.Errorf("workflow %q finished with failed steps: %v", wf.Name, failed)
	}
	return nil
}

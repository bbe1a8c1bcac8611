// Package shell provides the default step action: run the step's command
// through `sh -c`, capturing output. The engine treats the command as
// opaque; this package is the only place that actually executes it.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/graph"
)

// Action executes step commands in a shell.
type Action struct {
	// Dir is the working directory for commands; empty means inherit.
	Dir string
}

// NewAction creates a shell action running commands in the current directory.
func NewAction() *Action {
	return &Action{}
}

// Run executes the step's command. A non-zero exit status (or a context
// deadline killing the process) is returned as an error, which the engine
// consumes as a Failed outcome.
func (a *Action) Run(ctx context.Context, st *graph.Step) error {
	logger := ctxlog.FromContext(ctx).With("stepID", st.ID)
	logger.Info("Running command.", "command", st.Command)

	cmd := exec.CommandContext(ctx, "sh", "-c", st.Command)
	cmd.Dir = a.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if stdout.Len() > 0 {
		logger.Info("Command output.", "stdout", stdout.String())
	}
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("command %q timed out: %w", st.Command, ctx.Err())
		}
		return fmt.Errorf("command %q failed: %w; stderr: %s", st.Command, err, stderr.String())
	}
	return nil
}

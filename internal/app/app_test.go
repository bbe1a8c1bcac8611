package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stepflow/internal/scheduler"
	"github.com/vk/stepflow/internal/testutil"
)

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestApp(t *testing.T, path string, action *testutil.ScriptedAction) (*App, *bytes.Buffer) {
	t.Helper()
	cfg, err := NewConfig(Config{WorkflowPath: path, LogFormat: "text", LogLevel: "warn"})
	require.NoError(t, err)

	var out bytes.Buffer
	a := NewApp(&out, &testutil.SafeBuffer{}, cfg)
	a.SetAction(action)
	return a, &out
}

func TestRunSuccess(t *testing.T) {
	path := writeWorkflow(t, `[
		{"step_id": "a", "run": "echo a"},
		{"step_id": "b", "run": "echo b", "depends_on": ["a"]}
	]`)
	a, out := newTestApp(t, path, testutil.NewScriptedAction())

	require.NoError(t, a.Run(context.Background()))

	assert.Contains(t, out.String(), "Step ID")
	assert.Contains(t, out.String(), "SUCCESS")
	assert.Contains(t, out.String(), "Execution order: a -> b")
}

func TestRunFailedStepSurfacesAsError(t *testing.T) {
	path := writeWorkflow(t, `[
		{"step_id": "a", "run": "false"},
		{"step_id": "b", "run": "echo b", "depends_on": ["a"]}
	]`)
	a, out := newTestApp(t, path, testutil.NewScriptedAction().FailAlways("a"))

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finished with failed steps")
	assert.Contains(t, err.Error(), "a")

	// The report is still written before the error is returned.
	assert.Contains(t, out.String(), "FAILED")
	assert.Contains(t, out.String(), "SKIPPED")
}

func TestRunMissingWorkflowPath(t *testing.T) {
	a, _ := newTestApp(t, filepath.Join(t.TempDir(), "nope.json"), testutil.NewScriptedAction())

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load workflow")
}

func TestRunCyclicWorkflow(t *testing.T) {
	path := writeWorkflow(t, `[
		{"step_id": "a", "run": "echo a", "depends_on": ["b"]},
		{"step_id": "b", "run": "echo b", "depends_on": ["a"]}
	]`)
	a, out := newTestApp(t, path, testutil.NewScriptedAction())

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build dependency graph")
	assert.Empty(t, out.String(), "nothing runs when the graph is invalid")
}

func TestRunEmptyWorkflow(t *testing.T) {
	path := writeWorkflow(t, `[]`)
	a, out := newTestApp(t, path, testutil.NewScriptedAction())

	require.NoError(t, a.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{WorkflowPath: "wf.json"})
		require.NoError(t, err)
		assert.Equal(t, scheduler.BreadthFirst, cfg.Policy)
		assert.Equal(t, 1, cfg.Workers)
	})

	t.Run("parallel worker default", func(t *testing.T) {
		cfg, err := NewConfig(Config{WorkflowPath: "wf.json", Policy: scheduler.Parallel})
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Workers)
	})

	t.Run("explicit workers kept", func(t *testing.T) {
		cfg, err := NewConfig(Config{WorkflowPath: "wf.json", Workers: 7})
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Workers)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := NewConfig(Config{})
		assert.ErrorContains(t, err, "WorkflowPath is a required configuration field")
	})

	t.Run("unknown policy", func(t *testing.T) {
		_, err := NewConfig(Config{WorkflowPath: "wf.json", Policy: "fastest"})
		assert.ErrorContains(t, err, "unknown scheduling policy")
	})

	t.Run("negative workers", func(t *testing.T) {
		_, err := NewConfig(Config{WorkflowPath: "wf.json", Workers: -2})
		assert.ErrorContains(t, err, "workers must not be negative")
	})
}

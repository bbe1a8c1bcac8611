package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/stepflow/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONBareArray(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.json", `[
		{"step_id": "a", "run": "echo a"},
		{"step_id": "b", "run": "echo b", "depends_on": ["a"], "on_failure": "retry: 2"}
	]`)

	wf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "default", wf.Name)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, model.StepDef{ID: "a", Run: "echo a"}, wf.Steps[0])
	assert.Equal(t, []string{"a"}, wf.Steps[1].DependsOn)
	assert.Equal(t, "retry: 2", wf.Steps[1].OnFailure)
}

func TestLoadJSONEnvelope(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.json", `{
		"workflow": "deploy",
		"steps": [
			{"step_id": "build", "run": "make build"},
			{"step_id": "test", "run": "make test", "depends_on": ["build"], "if": "outcome_build == success"}
		]
	}`)

	wf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "deploy", wf.Name)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "outcome_build == success", wf.Steps[1].If)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.yaml", `
workflow: pipeline
steps:
  - step_id: fetch
    run: git fetch
  - step_id: merge
    run: git merge
    depends_on: [fetch]
    parallel_with: [fetch]
`)

	wf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "pipeline", wf.Name)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, []string{"fetch"}, wf.Steps[1].DependsOn)
	assert.Equal(t, []string{"fetch"}, wf.Steps[1].ParallelWith)
}

func TestLoadYAMLBareSequence(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.yml", `
- step_id: only
  run: "true"
`)

	wf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, "only", wf.Steps[0].ID)
}

func TestLoadHCL(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.hcl", `
workflow "release" {
  step "tag" {
    run = "git tag"
  }

  step "publish" {
    run        = "make publish"
    depends_on = ["tag"]
    on_failure = "retry: 1"
  }
}
`)

	wf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "release", wf.Name)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "tag", wf.Steps[0].ID)
	assert.Equal(t, []string{"tag"}, wf.Steps[1].DependsOn)
	assert.Equal(t, "retry: 1", wf.Steps[1].OnFailure)
}

func TestLoadHCLBareStepBlocks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.hcl", `
step "a" {
  run = "echo a"
}

step "b" {
  run        = "echo b"
  depends_on = ["a"]
  if         = "outcome_a == success"
}
`)

	wf, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "outcome_a == success", wf.Steps[1].If)
}

func TestLoadHCLRejectsNonStringRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.hcl", `
step "a" {
  run = 42
}
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run must be a string")
}

func TestLoadHCLRejectsNonListDependsOn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "wf.hcl", `
step "a" {
  run        = "echo a"
  depends_on = "b"
}
`)

	_, err := NewLoader().Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends_on must be a list of strings")
}

func TestLoadDirectoryMergesInPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10_base.json", `{"workflow": "merged", "steps": [{"step_id": "a", "run": "echo a"}]}`)
	writeFile(t, dir, "20_more.yaml", `
steps:
  - step_id: b
    run: echo b
    depends_on: [a]
`)

	wf, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "merged", wf.Name)
	require.Len(t, wf.Steps, 2)
	assert.Equal(t, "a", wf.Steps[0].ID)
	assert.Equal(t, "b", wf.Steps[1].ID)
}

func TestLoadDirectoryWithoutWorkflowFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "nothing here")

	_, err := NewLoader().Load(context.Background(), dir)
	var vErr *model.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "no workflow files found")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantSub string
	}{
		{
			name:    "missing path",
			path:    filepath.Join(dir, "nope.json"),
			wantSub: "cannot read workflow path",
		},
		{
			name:    "unsupported extension",
			path:    writeFile(t, dir, "wf.toml", "[steps]"),
			wantSub: "unsupported workflow file extension",
		},
		{
			name:    "invalid json",
			path:    writeFile(t, dir, "broken.json", "{not json"),
			wantSub: "not a valid workflow document",
		},
		{
			name:    "envelope without steps",
			path:    writeFile(t, dir, "empty.json", `{"workflow": "x"}`),
			wantSub: "no steps found",
		},
		{
			name:    "missing step_id",
			path:    writeFile(t, dir, "noid.json", `[{"run": "echo"}]`),
			wantSub: "missing step_id",
		},
		{
			name:    "missing run",
			path:    writeFile(t, dir, "norun.yaml", "- step_id: a"),
			wantSub: "run is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Load(context.Background(), tc.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSub)
		})
	}
}

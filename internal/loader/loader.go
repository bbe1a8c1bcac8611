// Package loader reads workflow definitions from disk and produces the
// format-agnostic model consumed by the graph builder. Three formats are
// recognized by extension: JSON (.json), YAML (.yaml/.yml) and HCL (.hcl).
// All formats describe the same step records; the loader's job ends at
// structural validation of each record — graph-level validation (duplicate
// ids, unknown references, cycles) belongs to the graph builder.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/fsutil"
	"github.com/vk/stepflow/internal/model"
)

var workflowExtensions = []string{".json", ".yaml", ".yml", ".hcl"}

// Loader reads workflow definition files.
type Loader struct{}

// NewLoader creates a workflow definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a workflow from path. A file is parsed by its extension; a
// directory is walked for recognized files, whose steps are merged in
// path order into a single workflow.
func (l *Loader) Load(ctx context.Context, path string) (*model.Workflow, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read workflow path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtensions(path, workflowExtensions...)
		if err != nil {
			return nil, fmt.Errorf("scanning workflow directory %s: %w", path, err)
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, &model.ValidationError{Reason: fmt.Sprintf("no workflow files found under %s", path)}
		}
	}
	logger.Debug("Discovered workflow files.", "count", len(files))

	merged := &model.Workflow{Name: "default"}
	for _, file := range files {
		wf, err := l.loadFile(ctx, file)
		if err != nil {
			return nil, err
		}
		if wf.Name != "" && wf.Name != "default" {
			merged.Name = wf.Name
		}
		merged.Steps = append(merged.Steps, wf.Steps...)
	}
	logger.Debug("Workflow loading complete.", "workflow", merged.Name, "steps", len(merged.Steps))
	return merged, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (*model.Workflow, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return l.loadJSON(ctx, path)
	case ".yaml", ".yml":
		return l.loadYAML(ctx, path)
	case ".hcl":
		return l.loadHCL(ctx, path)
	default:
		return nil, &model.ValidationError{Reason: fmt.Sprintf("unsupported workflow file extension %q in %s", ext, path)}
	}
}

// validateSteps checks per-record required fields. Empty run or step_id is a
// loader-level error; cross-step problems surface at graph build.
func validateSteps(path string, steps []model.StepDef) error {
	for i, def := range steps {
		if def.ID == "" {
			return &model.ValidationError{Reason: fmt.Sprintf("%s: step #%d is missing step_id", path, i+1)}
		}
		if def.Run == "" {
			return &model.ValidationError{StepID: def.ID, Reason: fmt.Sprintf("%s: run is required", path)}
		}
	}
	return nil
}

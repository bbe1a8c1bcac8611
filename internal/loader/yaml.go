package loader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/model"
)

// loadYAML parses a YAML workflow file. The document shapes mirror JSON:
// either an enveloped document with a steps list, or a bare step sequence.
func (l *Loader) loadYAML(ctx context.Context, path string) (*model.Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing YAML workflow file.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records []stepRecord
	name := ""
	if err := yaml.Unmarshal(data, &records); err != nil {
		var doc workflowDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &model.ValidationError{Reason: fmt.Sprintf("%s: not a valid workflow document: %v", path, err)}
		}
		if doc.Steps == nil {
			return nil, &model.ValidationError{Reason: fmt.Sprintf("%s: no steps found in workflow definition", path)}
		}
		records, name = doc.Steps, doc.Workflow
	}

	wf := &model.Workflow{Name: name}
	for _, rec := range records {
		wf.Steps = append(wf.Steps, rec.toDef())
	}
	if err := validateSteps(path, wf.Steps); err != nil {
		return nil, err
	}
	return wf, nil
}

package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/model"
)

// stepRecord is the wire shape of one step in JSON and YAML documents.
type stepRecord struct {
	StepID       string   `json:"step_id" yaml:"step_id"`
	Run          string   `json:"run" yaml:"run"`
	DependsOn    []string `json:"depends_on" yaml:"depends_on"`
	If           string   `json:"if" yaml:"if"`
	OnFailure    string   `json:"on_failure" yaml:"on_failure"`
	ParallelWith []string `json:"parallel_with" yaml:"parallel_with"`
}

// workflowDocument is the enveloped document shape:
// {"workflow": "name", "steps": [...]}.
type workflowDocument struct {
	Workflow string       `json:"workflow" yaml:"workflow"`
	Steps    []stepRecord `json:"steps" yaml:"steps"`
}

func (r stepRecord) toDef() model.StepDef {
	return model.StepDef{
		ID:           r.StepID,
		Run:          r.Run,
		DependsOn:    r.DependsOn,
		If:           r.If,
		OnFailure:    r.OnFailure,
		ParallelWith: r.ParallelWith,
	}
}

// loadJSON parses a JSON workflow file. Both the enveloped document and a
// bare step array are accepted.
func (l *Loader) loadJSON(ctx context.Context, path string) (*model.Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing JSON workflow file.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records []stepRecord
	name := ""
	if err := json.Unmarshal(data, &records); err != nil {
		var doc workflowDocument
		if err := json.Unmarshal(data, &doc); err != nil {
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

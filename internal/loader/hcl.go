package loader

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/model"
)

// hclStep is a `step "<step_id>" { ... }` block. Attribute values are kept
// as expressions and evaluated during translation, so quoting style and
// list literals are handled uniformly by cty.
type hclStep struct {
	ID           string         `hcl:"step_id,label"`
	Run          hcl.Expression `hcl:"run"`
	DependsOn    hcl.Expression `hcl:"depends_on,optional"`
	If           hcl.Expression `hcl:"if,optional"`
	OnFailure    hcl.Expression `hcl:"on_failure,optional"`
	ParallelWith hcl.Expression `hcl:"parallel_with,optional"`
}

// hclWorkflow is a `workflow "<name>" { ... }` block.
type hclWorkflow struct {
	Name  string     `hcl:"name,label"`
	Steps []*hclStep `hcl:"step,block"`
}

// hclRoot decodes any recognized top-level block: workflow envelopes and
// bare step blocks may be mixed freely across files.
type hclRoot struct {
	Workflows []*hclWorkflow `hcl:"workflow,block"`
	Steps     []*hclStep     `hcl:"step,block"`
}

// loadHCL parses an HCL workflow file.
func (l *Loader) loadHCL(ctx context.Context, path string) (*model.Workflow, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing HCL workflow file.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	wf := &model.Workflow{}
	steps := root.Steps
	for _, block := range root.Workflows {
		wf.Name = block.Name
		steps = append(steps, block.Steps...)
	}
	for _, s := range steps {
		def, err := translateHCLStep(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		wf.Steps = append(wf.Steps, def)
	}
	if err := validateSteps(path, wf.Steps); err != nil {
		return nil, err
	}
	return wf, nil
}

// translateHCLStep evaluates a step block's expressions into the
// format-agnostic record.
func translateHCLStep(s *hclStep) (model.StepDef, error) {
	def := model.StepDef{ID: s.ID}

	var err error
	if def.Run, err = stringFromExpr(s.Run, "run"); err != nil {
		return def, fmt.Errorf("step %q: %w", s.ID, err)
	}
	if def.If, err = stringFromExpr(s.If, "if"); err != nil {
		return def, fmt.Errorf("step %q: %w", s.ID, err)
	}
	if def.OnFailure, err = stringFromExpr(s.OnFailure, "on_failure"); err != nil {
		return def, fmt.Errorf("step %q: %w", s.ID, err)
	}
	if def.DependsOn, err = stringListFromExpr(s.DependsOn, "depends_on"); err != nil {
		return def, fmt.Errorf("step %q: %w", s.ID, err)
	}
	if def.ParallelWith, err = stringListFromExpr(s.ParallelWith, "parallel_with"); err != nil {
		return def, fmt.Errorf("step %q: %w", s.ID, err)
	}
	return def, nil
}

// stringFromExpr evaluates an optional attribute expression to a string.
func stringFromExpr(expr hcl.Expression, attr string) (string, error) {
	val, err := exprValue(expr, attr)
	if err != nil || val == cty.NilVal || val.IsNull() {
		return "", err
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("%s must be a string, got %s", attr, val.Type().FriendlyName())
	}
	return val.AsString(), nil
}

// stringListFromExpr evaluates an optional attribute expression to a list of
// strings.
func stringListFromExpr(expr hcl.Expression, attr string) ([]string, error) {
	val, err := exprValue(expr, attr)
	if err != nil || val == cty.NilVal || val.IsNull() {
		return nil, err
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("%s must be a list of strings, got %s", attr, val.Type().FriendlyName())
	}
	var out []string
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.String {
			return nil, fmt.Errorf("%s must contain only strings, got %s", attr, elem.Type().FriendlyName())
		}
		out = append(out, elem.AsString())
	}
	return out, nil
}

// exprValue evaluates an expression with no variables in scope. A value is
// only usable if it evaluates without error; workflow files are static
// documents, not templates.
func exprValue(expr hcl.Expression, attr string) (cty.Value, error) {
	if expr == nil {
		return cty.NilVal, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluating %s: %w", attr, diags)
	}
	return val, nil
}

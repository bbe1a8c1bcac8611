// Package model holds the format-agnostic workflow definition types shared by
// every layer: step definitions as loaded from disk, the step status
// vocabulary, and failure policies.
//
// Why a separate model package?
//
// Loaders (JSON, YAML, HCL) each have their own wire schema, and the graph
// and engine each have their own runtime concerns. The model is the narrow
// waist between them: a loader's only job is to produce a Workflow of
// StepDefs, and everything downstream consumes nothing else.
package model

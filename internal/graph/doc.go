// Package graph builds and owns the step dependency graph. It validates a
// loaded workflow (unique ids, known dependency references, conditions only
// referencing declared dependencies, acyclicity) and exposes the adjacency
// both ways: dependencies as declared, dependents as the derived transpose.
//
// The graph is immutable after Build except for each Step's Status and
// Attempt fields, which only the execution engine mutates. Steps hold no
// pointers to each other, only ids resolved through the graph's lookup.
package graph

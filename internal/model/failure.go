package model

import (
	"fmt"
	"strconv"
	"strings"
)

// PolicyKind selects what the engine does when a step's action fails.
type PolicyKind int8

const (
	// SkipDependents marks the step terminally Failed and cascades Skipped
	// through the transitive closure of its dependents.
	SkipDependents PolicyKind = iota
	// Retry re-queues the step until its retry budget is exhausted, then
	// behaves like SkipDependents.
	Retry
)

// FailurePolicy is a step's configured reaction to action failure.
type FailurePolicy struct {
	Kind PolicyKind
	// MaxRetries bounds the Failed→Ready edge for Retry policies: a step is
	// dispatched at most MaxRetries+1 times.
	MaxRetries int
}

// DefaultFailurePolicy is applied when a step declares no on_failure field.
func DefaultFailurePolicy() FailurePolicy {
	return FailurePolicy{Kind: SkipDependents}
}

// ParseFailurePolicy parses the textual on_failure field: "skip_dependents"
// or "retry: N" with N a positive integer.
func ParseFailurePolicy(raw string) (FailurePolicy, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultFailurePolicy(), nil
	}
	if trimmed == "skip_dependents" {
		return FailurePolicy{Kind: SkipDependents}, nil
	}
	if rest, ok := strings.CutPrefix(trimmed, "retry:"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return FailurePolicy{}, fmt.Errorf("invalid retry count in on_failure %q: %w", raw, err)
		}
		if n <= 0 {
			return FailurePolicy{}, fmt.Errorf("invalid retry count in on_failure %q: must be positive", raw)
		}
		return FailurePolicy{Kind: Retry, MaxRetries: n}, nil
	}
	return FailurePolicy{}, fmt.Errorf("unknown on_failure value %q: must be \"skip_dependents\" or \"retry: N\"", raw)
}

// String renders the policy in the on_failure syntax.
func (p FailurePolicy) String() string {
	if p.Kind == Retry {
		return fmt.Sprintf("retry: %d", p.MaxRetries)
	}
	return "skip_dependents"
}

// Package condition parses and evaluates step gate expressions of the form
//
//	outcome_build == success and outcome_lint != failed
//
// An expression is a conjunction of atomic comparisons against the terminal
// outcome of other steps. Expressions are parsed once, at validation time,
// into a small AST; they are never evaluated as general code. Evaluation is
// stateless: the same terminal snapshot always yields the same result.
package condition

import (
	"fmt"
	"strings"

	"github.com/vk/stepflow/internal/model"
)

// Result is the outcome of evaluating an expression against a snapshot.
type Result int8

const (
	// False: the expression is decidable and does not hold.
	False Result = iota
	// True: the expression is decidable and holds.
	True
	// Deferred: a referenced step is not yet terminal; the caller must not
	// advance the gated step past Pending.
	Deferred
)

func (r Result) String() string {
	switch r {
	case False:
		return "false"
	case True:
		return "true"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("Result(%d)", int8(r))
	}
}

// comparison is one atom: the terminal outcome of StepID compared to Want.
type comparison struct {
	stepID string
	want   model.Status
	negate bool
}

// Expr is a parsed condition: a conjunction of comparisons.
type Expr struct {
	source string
	atoms  []comparison
}

// ParseError reports a malformed condition expression.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid condition %q: %s", e.Source, e.Reason)
}

const outcomePrefix = "outcome_"

// Parse compiles a condition string into an Expr. The grammar is a
// conjunction ("and") of atoms `outcome_<id> == <outcome>` or
// `outcome_<id> != <outcome>`.
func Parse(source string) (*Expr, error) {
	expr := &Expr{source: source}
	for _, clause := range strings.Split(source, " and ") {
		atom, err := parseAtom(clause)
		if err != nil {
			return nil, &ParseError{Source: source, Reason: err.Error()}
		}
		expr.atoms = append(expr.atoms, atom)
	}
	return expr, nil
}

func parseAtom(clause string) (comparison, error) {
	var lhs, rhs string
	var negate bool
	if l, r, ok := strings.Cut(clause, "!="); ok {
		lhs, rhs, negate = l, r, true
	} else if l, r, ok := strings.Cut(clause, "=="); ok {
		lhs, rhs = l, r
	} else {
		return comparison{}, fmt.Errorf("clause %q has no comparison operator", strings.TrimSpace(clause))
	}

	lhs = strings.TrimSpace(lhs)
	rhs = strings.Trim(strings.TrimSpace(rhs), `'"`)

	stepID, ok := strings.CutPrefix(lhs, outcomePrefix)
	if !ok || stepID == "" {
		return comparison{}, fmt.Errorf("left-hand side %q must be outcome_<step_id>", lhs)
	}
	want, err := model.ParseOutcome(rhs)
	if err != nil {
		return comparison{}, err
	}
	return comparison{stepID: stepID, want: want, negate: negate}, nil
}

// Lookup reports the current status of a step and whether that status is
// terminal. The bool follows the map-lookup convention: false means the
// referenced step's outcome is not yet decided.
type Lookup func(stepID string) (status model.Status, terminal bool)

// Eval evaluates the conjunction against the snapshot provided by lookup.
// Any undecided reference defers the whole expression, so a caller never
// acts on a partial view of the referenced outcomes.
func (e *Expr) Eval(lookup Lookup) Result {
	for _, atom := range e.atoms {
		if _, terminal := lookup(atom.stepID); !terminal {
			return Deferred
		}
	}
	for _, atom := range e.atoms {
		status, _ := lookup(atom.stepID)
		holds := status == atom.want
		if atom.negate {
			holds = !holds
		}
		if !holds {
			return False
		}
	}
	return True
}

// References returns the step ids the expression mentions, in source order.
// Graph validation requires every reference to be a declared dependency.
func (e *Expr) References() []string {
	refs := make([]string, 0, len(e.atoms))
	for _, atom := range e.atoms {
		refs = append(refs, atom.stepID)
	}
	return refs
}

// String returns the original source text.
func (e *Expr) String() string {
	return e.source
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/stepflow/internal/condition"
	"github.com/vk/stepflow/internal/ctxlog"
	"github.com/vk/stepflow/internal/graph"
	"github.com/vk/stepflow/internal/model"
	"github.com/vk/stepflow/internal/scheduler"
)

// Action is the injected operation a step performs when dispatched. The
// engine never inspects the command; a nil error is success, anything else
// is failure fed to the step's failure policy.
type Action interface {
	Run(ctx context.Context, st *graph.Step) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, st *graph.Step) error

// Run implements Action.
func (f ActionFunc) Run(ctx context.Context, st *graph.Step) error {
	return f(ctx, st)
}

// InvariantViolationError reports an illegal state transition or corrupted
// shared state. It is a programming error: always fatal, never recovered.
type InvariantViolationError struct {
	StepID string
	From   model.Status
	To     model.Status
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant violation: illegal transition %s -> %s for step %q", e.From, e.To, e.StepID)
}

// legalTransitions is the step state machine. Failed→Ready is the single
// backward edge, taken only while the retry budget allows.
var legalTransitions = map[model.Status][]model.Status{
	model.Pending: {model.Ready, model.Skipped},
	model.Ready:   {model.Running},
	model.Running: {model.Success, model.Failed},
	model.Failed:  {model.Ready},
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of steps running concurrently. K=1 (the
// default) degenerates to strictly sequential execution.
func WithWorkers(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.workers = k
		}
	}
}

// WithAttemptTimeout wraps each action invocation in a deadline; expiry maps
// to a Failed outcome, leaving the state machine untouched.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.attemptTimeout = d
	}
}

// Engine executes one graph exactly once.
type Engine struct {
	graph   *graph.Graph
	sched   scheduler.Scheduler
	action  Action
	workers int

	attemptTimeout time.Duration

	// mu guards everything below, plus all step Status/Attempt fields and
	// all scheduler calls.
	mu      sync.Mutex
	cond    *sync.Cond
	running int
	started bool
	log     *ExecutionLog
	fatal   error
}

// New assembles an engine over a built graph. The scheduler must have been
// constructed for the same graph.
func New(g *graph.Graph, sched scheduler.Scheduler, action Action, opts ...Option) *Engine {
	e := &Engine{
		graph:   g,
		sched:   sched,
		action:  action,
		workers: 1,
		log:     &ExecutionLog{RunID: uuid.NewString()},
	}
	e.cond = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run drives the graph to completion: every step reaches a terminal state,
// or a fatal invariant violation aborts the run. The returned log holds
// every committed transition in global commit order. Action failures are
// not errors here; they are domain data consumed by the state machine.
func (e *Engine) Run(ctx context.Context) (*ExecutionLog, error) {
	logger := ctxlog.FromContext(ctx).With("runID", e.log.RunID)
	ctx = ctxlog.WithLogger(ctx, logger)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil, errors.New("engine: Run called twice on the same engine")
	}
	e.started = true

	logger.Info("Starting run.", "steps", e.graph.Len(), "workers", e.workers)

	// Seed: roots have no dependencies, so eligibility is decidable now.
	for _, root := range e.graph.Roots() {
		e.reevaluate(ctx, root)
	}

	for e.fatal == nil {
		for e.running < e.workers {
			st := e.sched.Next()
			if st == nil {
				break
			}
			st.Attempt++
			if !e.transition(ctx, st, model.Running) {
				break
			}
			e.running++
			go e.dispatch(ctx, st)
		}
		if e.running == 0 {
			break
		}
		e.cond.Wait()
	}

	if e.fatal != nil {
		// Let in-flight workers drain before reporting; their completions
		// are no-ops once fatal is set.
		for e.running > 0 {
			e.cond.Wait()
		}
		logger.Error("Run aborted.", "error", e.fatal)
		return e.log, e.fatal
	}

	// Termination sweep: anything still Pending can never become eligible
	// (scheduler drained, nothing running), so it is forced Skipped. This
	// guarantees every step ends terminal.
	for _, id := range e.graph.IDs() {
		st := e.graph.Get(id)
		if st.Status == model.Pending && e.fatal == nil {
			logger.Warn("Forcing unreachable step to SKIPPED.", "stepID", st.ID)
			if e.transition(ctx, st, model.Skipped) {
				e.propagate(ctx, st)
			}
		}
	}
	if e.fatal != nil {
		return e.log, e.fatal
	}

	logger.Info("Run complete.", "transitions", len(e.log.Records))
	return e.log, nil
}

// dispatch runs the step's action outside the lock, then commits the outcome.
func (e *Engine) dispatch(ctx context.Context, st *graph.Step) {
	logger := ctxlog.FromContext(ctx).With("stepID", st.ID, "attempt", st.Attempt)
	logger.Debug("Worker picked up step for execution.")

	runCtx := ctx
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	err := e.action.Run(runCtx, st)

	e.mu.Lock()
	defer e.mu.Unlock()
	defer e.cond.Broadcast()
	e.running--

	if e.fatal != nil {
		return
	}
	if err != nil {
		logger.Warn("Step failed.", "error", err)
		e.completeFailed(ctx, st)
		return
	}
	logger.Debug("Step succeeded.")
	if e.transition(ctx, st, model.Success) {
		e.propagate(ctx, st)
	}
}

// completeFailed applies the step's failure policy: re-queue while the retry
// budget allows, otherwise commit terminal failure and cascade.
func (e *Engine) completeFailed(ctx context.Context, st *graph.Step) {
	if !e.transition(ctx, st, model.Failed) {
		return
	}
	retriesUsed := st.Attempt - 1
	if st.Policy.Kind == model.Retry && retriesUsed < st.Policy.MaxRetries {
		ctxlog.FromContext(ctx).Info("Retrying failed step.",
			"stepID", st.ID, "retriesUsed", retriesUsed, "maxRetries", st.Policy.MaxRetries)
		if e.transition(ctx, st, model.Ready) {
			e.sched.Offer(st)
		}
		return
	}
	// Terminal failure.
	e.propagate(ctx, st)
}

// propagate fans a step's first terminal transition out to its dependents.
// Callers hold the lock; the whole cascade commits before it is released.
func (e *Engine) propagate(ctx context.Context, st *graph.Step) {
	for _, depID := range e.graph.DependentsOf(st.ID) {
		e.reevaluate(ctx, e.graph.Get(depID))
	}
}

// reevaluate re-checks a pending step's eligibility after a dependency
// committed a terminal state. Any non-success terminal dependency
// disqualifies the step (cascade skip); otherwise, once every dependency is
// terminal-success the condition decides Ready versus Skipped.
func (e *Engine) reevaluate(ctx context.Context, st *graph.Step) {
	if e.fatal != nil || st.Status != model.Pending {
		return
	}

	allSuccess := true
	for _, depID := range st.DependsOn {
		dep := e.graph.Get(depID)
		if !dep.Status.Terminal() {
			allSuccess = false
			continue
		}
		if dep.Status != model.Success {
			e.skipCascade(ctx, st, depID)
			return
		}
	}
	if !allSuccess {
		return
	}

	if st.Condition != nil {
		switch st.Condition.Eval(e.lookup) {
		case condition.False:
			ctxlog.FromContext(ctx).Info("Condition is false, skipping step.",
				"stepID", st.ID, "condition", st.Condition.String())
			if e.transition(ctx, st, model.Skipped) {
				e.propagate(ctx, st)
			}
			return
		case condition.Deferred:
			// A referenced outcome is still undecided; stay Pending.
			return
		}
	}

	if e.transition(ctx, st, model.Ready) {
		e.sched.Offer(st)
	}
}

// skipCascade commits a cascading skip on st and recurses through its
// dependents via propagate.
func (e *Engine) skipCascade(ctx context.Context, st *graph.Step, causeID string) {
	ctxlog.FromContext(ctx).Warn("Skipping step due to upstream outcome.",
		"stepID", st.ID, "dependency", causeID)
	if e.transition(ctx, st, model.Skipped) {
		e.propagate(ctx, st)
	}
}

// lookup is the condition evaluator's view of current outcomes.
func (e *Engine) lookup(stepID string) (model.Status, bool) {
	st := e.graph.Get(stepID)
	if st == nil {
		return model.Pending, false
	}
	return st.Status, st.Status.Terminal()
}

// transition commits one state change and appends it to the execution log.
// An illegal transition marks the run fatal and returns false.
func (e *Engine) transition(ctx context.Context, st *graph.Step, to model.Status) bool {
	from := st.Status
	legal := false
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			legal = true
			break
		}
	}
	if !legal {
		e.fatal = &InvariantViolationError{StepID: st.ID, From: from, To: to}
		return false
	}

	st.Status = to
	e.log.Records = append(e.log.Records, Record{
		Seq:     len(e.log.Records) + 1,
		StepID:  st.ID,
		From:    from,
		To:      to,
		Attempt: st.Attempt,
	})
	ctxlog.FromContext(ctx).Debug("Committed transition.",
		"stepID", st.ID, "from", from.String(), "to", to.String(), "attempt", st.Attempt)
	return true
}

// FailedSteps returns the ids of terminally failed steps, in definition
// order, with the first failure's id at index 0. Used by the app layer to
// build its exit error, mirroring how runs report a root cause.
func (e *Engine) FailedSteps() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var failed []string
	for _, id := range e.graph.IDs() {
		if e.graph.Get(id).Status == model.Failed {
			failed = append(failed, id)
		}
	}
	return failed
}

// Summary renders a one-line outcome count, e.g. "5 success, 1 failed".
func (e *Engine) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	counts := make(map[model.Status]int)
	for _, id := range e.graph.IDs() {
		counts[e.graph.Get(id).Status]++
	}
	var parts []string
	for _, s := range []model.Status{model.Success, model.Failed, model.Skipped} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], strings.ToLower(s.String())))
		}
	}
	if len(parts) == 0 {
		return "no steps"
	}
	return strings.Join(parts, ", ")
}

// Package scheduler owns the ready pool: the set of steps whose dependencies
// and conditions are satisfied, ordered for dispatch by the active policy.
//
// Policies only decide the order among simultaneously eligible steps. They
// never decide eligibility itself — that is the engine's state machine.
package scheduler

import (
	"fmt"

	"github.com/vk/stepflow/internal/graph"
)

// Policy names an ordering strategy for the ready pool.
type Policy string

const (
	// BreadthFirst dispatches shallower steps before deeper ones, so each
	// dependency level is exhausted before the steps it unblocks.
	BreadthFirst Policy = "bfs"
	// DepthFirst prefers the deepest eligible step, biasing execution
	// toward finishing one dependency chain before returning to siblings.
	DepthFirst Policy = "dfs"
	// Parallel keeps the pool unordered for bounded-concurrent dispatch.
	Parallel Policy = "parallel"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(name) {
	case BreadthFirst, DepthFirst, Parallel:
		return Policy(name), nil
	default:
		return "", fmt.Errorf("unknown scheduling policy %q: must be bfs, dfs, or parallel", name)
	}
}

// Scheduler is the ready pool consumed by the execution engine.
//
// Offer adds a newly Ready step; Next removes and returns the step to
// dispatch under the active policy, or nil when the pool is empty;
// HasPending reports whether any offered step awaits dispatch. The engine
// serializes all calls under its own lock.
type Scheduler interface {
	Offer(st *graph.Step)
	Next() *graph.Step
	HasPending() bool
}

// New returns a scheduler for the given policy. Depth-ordered policies
// compute each step's dependency depth once, from the graph, at
// construction.
func New(policy Policy, g *graph.Graph) (Scheduler, error) {
	switch policy {
	case BreadthFirst:
		return &leveled{levels: depthLevels(g), deepestFirst: false}, nil
	case DepthFirst:
		return &leveled{levels: depthLevels(g), deepestFirst: true}, nil
	case Parallel:
		return &fifo{}, nil
	default:
		return nil, fmt.Errorf("unknown scheduling policy %q", policy)
	}
}

// depthLevels computes each step's dependency depth: 0 for roots, otherwise
// one more than the deepest dependency.
func depthLevels(g *graph.Graph) map[string]int {
	levels := make(map[string]int, g.Len())
	visited := make(map[string]bool, g.Len())

	var level func(id string) int
	level = func(id string) int {
		if visited[id] {
			return levels[id]
		}
		visited[id] = true
		max := -1
		for _, depID := range g.DependenciesOf(id) {
			if l := level(depID); l > max {
				max = l
			}
		}
		levels[id] = max + 1
		return levels[id]
	}

	for _, id := range g.IDs() {
		level(id)
	}
	return levels
}

// leveled orders the pool by dependency depth with a stable, offer-ordered
// tie-break. Shallowest-first realizes breadth-first dispatch; deepest-first
// realizes depth-first.
type leveled struct {
	levels       map[string]int
	pool         []*graph.Step
	deepestFirst bool
}

func (s *leveled) Offer(st *graph.Step) {
	s.pool = append(s.pool, st)
}

func (s *leveled) Next() *graph.Step {
	if len(s.pool) == 0 {
		return nil
	}
	best := 0
	for i, st := range s.pool[1:] {
		if s.better(st, s.pool[best]) {
			best = i + 1
		}
	}
	st := s.pool[best]
	s.pool = append(s.pool[:best], s.pool[best+1:]...)
	return st
}

// better reports a strict preference, so equal-depth steps keep offer order.
func (s *leveled) better(a, b *graph.Step) bool {
	if s.deepestFirst {
		return s.levels[a.ID] > s.levels[b.ID]
	}
	return s.levels[a.ID] < s.levels[b.ID]
}

func (s *leveled) HasPending() bool {
	return len(s.pool) > 0
}

// fifo is the unordered pool for bounded-parallel dispatch. Offer order is
// as good as any other; the concurrency bound lives in the engine.
type fifo struct {
	pool []*graph.Step
}

func (s *fifo) Offer(st *graph.Step) {
	s.pool = append(s.pool, st)
}

func (s *fifo) Next() *graph.Step {
	if len(s.pool) == 0 {
		return nil
	}
	st := s.pool[0]
	s.pool = s.pool[1:]
	return st
}

func (s *fifo) HasPending() bool {
	return len(s.pool) > 0
}

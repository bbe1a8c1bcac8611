// Package testutil provides shared helpers for package tests: a thread-safe
// log capture buffer and a scripted step action with recorded dispatch order.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/stepflow/internal/graph"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// failAlways marks a step that never succeeds.
const failAlways = -1

// ScriptedAction is an engine action whose outcomes are scripted per step:
// the first N attempts of a step fail, the rest succeed. It records the
// order steps were executed in and the peak number of concurrent executions.
type ScriptedAction struct {
	mu        sync.Mutex
	failures  map[string]int
	order     []string
	active    int
	maxActive int

	// Delay stretches each execution so concurrency overlap is observable.
	Delay time.Duration
}

// NewScriptedAction creates an action where every step succeeds until
// scripted otherwise.
func NewScriptedAction() *ScriptedAction {
	return &ScriptedAction{failures: make(map[string]int)}
}

// Fail scripts the first n attempts of stepID to fail.
func (a *ScriptedAction) Fail(stepID string, n int) *ScriptedAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[stepID] = n
	return a
}

// FailAlways scripts every attempt of stepID to fail.
func (a *ScriptedAction) FailAlways(stepID string) *ScriptedAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[stepID] = failAlways
	return a
}

// Run implements engine.Action.
func (a *ScriptedAction) Run(ctx context.Context, st *graph.Step) error {
	a.mu.Lock()
	a.order = append(a.order, st.ID)
	a.active++
	if a.active > a.maxActive {
		a.maxActive = a.active
	}
	remaining := a.failures[st.ID]
	if remaining > 0 {
		a.failures[st.ID] = remaining - 1
	}
	delay := a.Delay
	a.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			a.finish()
			return ctx.Err()
		}
	}

	a.finish()
	if remaining != 0 {
		return fmt.Errorf("scripted failure for step %q", st.ID)
	}
	return nil
}

func (a *ScriptedAction) finish() {
	a.mu.Lock()
	a.active--
	a.mu.Unlock()
}

// Order returns the step ids in execution order, retries included.
func (a *ScriptedAction) Order() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// MaxConcurrent returns the peak number of overlapping executions observed.
func (a *ScriptedAction) MaxConcurrent() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxActive
}

// Package engine drives workflow execution: it seeds the scheduler with the
// graph's roots, dispatches ready steps to the injected action on a bounded
// pool of workers, applies the step state machine on completion, and
// propagates every terminal outcome to the step's dependents until all steps
// are terminal.
//
// Concurrency discipline: one engine mutex guards every read-modify-write of
// step state, every scheduler call, and every propagation cascade. A cascade
// runs to completion before the lock is released, so an eligibility check
// never observes a torn view of its dependencies' statuses, and the
// execution log's sequence numbers are the global commit order. Only the
// action itself runs outside the lock.
package engine

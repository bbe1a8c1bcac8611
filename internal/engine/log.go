package engine

import "github.com/vk/stepflow/internal/model"

// Record is one committed state transition. Seq is the position in the
// global commit order, starting at 1. Attempt is the step's attempt count at
// commit time.
type Record struct {
	Seq     int
	StepID  string
	From    model.Status
	To      model.Status
	Attempt int
}

// ExecutionLog is the ordered transcript of a single run.
type ExecutionLog struct {
	// RunID uniquely names the run in logs and rendered output.
	RunID   string
	Records []Record
}

// DispatchOrder returns the step ids in the order they entered Running,
// repeats included for retried steps.
func (l *ExecutionLog) DispatchOrder() []string {
	var order []string
	for _, rec := range l.Records {
		if rec.To == model.Running {
			order = append(order, rec.StepID)
		}
	}
	return order
}

// CountTransitions returns how many committed transitions went from one
// specific status to another.
func (l *ExecutionLog) CountTransitions(from, to model.Status) int {
	n := 0
	for _, rec := range l.Records {
		if rec.From == from && rec.To == to {
			n++
		}
	}
	return n
}

package model

import "fmt"

// Status is the execution state of a step. A step starts Pending and moves
// forward through the state machine until it reaches a terminal status;
// Failed→Ready is the single backward edge, taken only while retries remain.
type Status int8

const (
	Pending Status = iota
	Ready
	Running
	Success
	Failed
	Skipped
)

// String returns the canonical upper-case name used in logs, tables and
// transition records.
func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Success:
		return "SUCCESS"
	case Failed:
		return "FAILED"
	case Skipped:
		return "SKIPPED"
	default:
		return fmt.Sprintf("Status(%d)", int8(s))
	}
}

// Terminal reports whether no further transition can occur from s. Failed is
// terminal here because the engine resolves the retry edge before releasing
// the lock: a Failed status observed anywhere else is final.
func (s Status) Terminal() bool {
	return s == Success || s == Failed || s == Skipped
}

// ParseOutcome maps the lower-case outcome names accepted in condition
// expressions ("success", "failed", "skipped") to a Status.
func ParseOutcome(name string) (Status, error) {
	switch name {
	case "success":
		return Success, nil
	case "failed":
		return Failed, nil
	case "skipped":
		return Skipped, nil
	default:
		return Pending, fmt.Errorf("unknown outcome %q: must be one of success, failed, skipped", name)
	}
}

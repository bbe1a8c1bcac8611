package engine

import "github.com/vk/stepflow/internal/model"

// SnapshotRow is one step's point-in-time view for visualization.
type SnapshotRow struct {
	StepID string
	Status model.Status
	// UnmetDependencies lists the dependencies not yet terminal-success, in
	// declaration order.
	UnmetDependencies []string
	Command           string
	Attempt           int
}

// Snapshot returns every step's current state in definition order. It takes
// the engine lock, so it is safe to call between or during dispatch cycles,
// and repeated calls without an intervening transition return identical
// results.
func (e *Engine) Snapshot() []SnapshotRow {
	e.mu.Lock()
	defer e.mu.Unlock()

	rows := make([]SnapshotRow, 0, e.graph.Len())
	for _, id := range e.graph.IDs() {
		st := e.graph.Get(id)
		var unmet []string
		for _, depID := range st.DependsOn {
			if e.graph.Get(depID).Status != model.Success {
				unmet = append(unmet, depID)
			}
		}
		rows = append(rows, SnapshotRow{
			StepID:            st.ID,
			Status:            st.Status,
			UnmetDependencies: unmet,
			Command:           st.Command,
			Attempt:           st.Attempt,
		})
	}
	return rows
}

// Package render draws the human-readable views of a run: the point-in-time
// status table and the final transition transcript.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vk/stepflow/internal/engine"
	"github.com/vk/stepflow/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	statusStyles = map[model.Status]lipgloss.Style{
		model.Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		model.Ready:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		model.Running: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		model.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		model.Skipped: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
)

const (
	maxDepsWidth    = 18
	maxCommandWidth = 28
)

// StatusTable renders a snapshot as an aligned table, one row per step in
// definition order.
func StatusTable(rows []engine.SnapshotRow) string {
	var b strings.Builder
	line := strings.Repeat("=", 80)

	b.WriteString(line + "\n")
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-14s %-9s %-*s %-*s %s",
		"Step ID", "Status", maxDepsWidth, "Unmet Deps", maxCommandWidth, "Command", "Attempts")))
	b.WriteString("\n" + strings.Repeat("-", 80) + "\n")

	for _, row := range rows {
		deps := "-"
		if len(row.UnmetDependencies) > 0 {
			deps = truncate(strings.Join(row.UnmetDependencies, ", "), maxDepsWidth)
		}
		status := statusStyles[row.Status].Render(fmt.Sprintf("%-9s", row.Status))
		b.WriteString(fmt.Sprintf("%-14s %s %-*s %-*s %d\n",
			truncate(row.StepID, 14), status,
			maxDepsWidth, deps,
			maxCommandWidth, truncate(row.Command, maxCommandWidth),
			row.Attempt))
	}
	b.WriteString(line + "\n")
	return b.String()
}

// Transcript renders the committed transitions of a finished run in commit
// order.
func Transcript(log *engine.ExecutionLog) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Transitions (run %s)", log.RunID)) + "\n")
	for _, rec := range log.Records {
		from := statusStyles[rec.From].Render(rec.From.String())
		to := statusStyles[rec.To].Render(rec.To.String())
		b.WriteString(fmt.Sprintf("%4d  %-14s %s -> %s", rec.Seq, rec.StepID, from, to))
		if rec.Attempt > 1 {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  (attempt %d)", rec.Attempt)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ExecutionOrder renders the dispatch order the way the final run report
// shows it: "a -> b -> c".
func ExecutionOrder(log *engine.ExecutionLog) string {
	return strings.Join(log.DispatchOrder(), " -> ")
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 3 {
		return s[:width]
	}
	return s[:width-3] + "..."
}

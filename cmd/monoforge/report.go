package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/monoforge/monoforge/internal/domain"
	"github.com/monoforge/monoforge/internal/graph"
	"github.com/monoforge/monoforge/internal/synth"
)

const timeUnit = 10 * time.Millisecond

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true)
)

func synthOptions() synth.Options {
	return synth.Options{PinLockedVersions: !noLock}
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusSucceeded:
		return okStyle.Render("ok")
	case domain.StatusFailed:
		return failStyle.Render("failed")
	case domain.StatusSkipped:
		return skipStyle.Render("skipped")
	}
	return string(s)
}

// printReport renders the run report: one line per package in topological
// order, then the aggregate summary.
func printReport(w io.Writer, g *graph.Graph, report *domain.Report) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s run %s", report.Action, report.RunID)))
	for _, name := range g.Order() {
		res, ok := report.Result(name)
		if !ok {
			continue
		}
		line := fmt.Sprintf("  %-30s %s", res.Package, statusLabel(res.Status))
		if res.Status == domain.StatusSucceeded || res.Status == domain.StatusFailed {
			line += fmt.Sprintf(" (%s)", res.Duration.Round(timeUnit))
		}
		fmt.Fprintln(w, line)
		if res.Err != nil {
			fmt.Fprintf(w, "    %v\n", res.Err)
		}
	}

	succeeded, failed, skipped := report.Counts()
	summary := fmt.Sprintf("%d succeeded, %d failed, %d skipped in %s",
		succeeded, failed, skipped,
		report.FinishedAt.Sub(report.StartedAt).Round(timeUnit))
	if report.OK() {
		fmt.Fprintln(w, okStyle.Render(summary))
	} else {
		fmt.Fprintln(w, failStyle.Render(summary))
	}
}

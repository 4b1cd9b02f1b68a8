package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zeusync/grab/internal/scenario"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	nameStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	detailStyle = lipgloss.NewStyle().PaddingLeft(6)
)

// renderReports prints one line per scenario and the failed checks under it.
func renderReports(w io.Writer, reports []*scenario.Report) {
	width := 0
	for _, r := range reports {
		width = max(width, len(r.Scenario))
	}
	passed := 0
	for _, r := range reports {
		status := failStyle.Render("FAIL")
		if r.Passed() {
			status = passStyle.Render("PASS")
			passed++
		}
		events := 0
		for _, n := range r.Events {
			events += n
		}
		stats := mutedStyle.Render(fmt.Sprintf("frames %d  sim %.2fs  events %d  checks %d",
			r.Frames, r.SimTime, events, len(r.Results)))
		fmt.Fprintf(w, "%s  %s  %s\n", status, nameStyle.Render(r.Scenario+strings.Repeat(" ", width-len(r.Scenario))), stats)
		for _, f := range r.Failures() {
			line := fmt.Sprintf("%s %s", f.Object, f.Check)
			if f.Detail != "" {
				line += ": " + f.Detail
			}
			fmt.Fprintln(w, detailStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "\n%d/%d scenarios passed\n", passed, len(reports))
}

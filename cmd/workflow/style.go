package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/workflow-go/workflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case string(workflow.RunCompleted):
		return okStyle
	case string(workflow.RunFailed):
		return failStyle
	case string(workflow.RunCancelled), string(workflow.StatusSkipped):
		return skipStyle
	}
	return dimStyle
}

// progressBar renders a fixed-width bar for pct in [0, 100].
func progressBar(pct float64, width int) string {
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// progressPrinter returns a ProgressFunc writing one line per record.
func progressPrinter(w io.Writer) workflow.ProgressFunc {
	return func(p workflow.Progress) {
		fmt.Fprintf(w, "%s %3.0f%% %s\n",
			dimStyle.Render(progressBar(p.PercentComplete(), 20)),
			p.PercentComplete(),
			p.Message,
		)
	}
}

// printValidation writes errors and warnings; it returns whether the result is valid.
func printValidation(w io.Writer, v workflow.ValidationResult) bool {
	for _, e := range v.Errors {
		fmt.Fprintln(w, failStyle.Render("error:"), e)
	}
	for _, warn := range v.Warnings {
		fmt.Fprintln(w, warnStyle.Render("warning:"), warn)
	}
	return v.Valid
}

func printSummary(w io.Writer, wf *workflow.Workflow, s *workflow.ExecutionSummary) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(wf.Name), statusStyle(string(s.Status)).Render(string(s.Status)))
	fmt.Fprintf(&b, "run      %s\n", s.RunID)
	fmt.Fprintf(&b, "nodes    %d ok, %d failed, %d total\n", s.SuccessfulNodes, s.FailedNodes, s.TotalNodes)
	fmt.Fprintf(&b, "duration %s", s.Duration.Round(time.Millisecond))
	if s.ErrorMessage != "" {
		fmt.Fprintf(&b, "\nerror    %s", failStyle.Render(s.ErrorMessage))
	}
	fmt.Fprintln(w, summaryStyle.Render(b.String()))

	for _, id := range s.Order {
		r, ok := s.Result(id)
		if !ok {
			continue
		}
		title := id
		if n, ok := wf.Node(id); ok {
			title = n.Title()
		}
		fmt.Fprintf(w, "  %-10s %-24s %s %s\n",
			statusStyle(string(r.Status)).Render(string(r.Status)),
			title,
			r.Message,
			dimStyle.Render(r.Duration.Round(time.Millisecond).String()),
		)
	}
}

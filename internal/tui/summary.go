package tui

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Summary describes a finished run.
type Summary struct {
	Name           string
	RunID          string
	TotalTasks     int
	CompletedTasks int
	Windows        int
	BatchSize      int
	Results        int
	Progress       float64
	Elapsed        time.Duration
	Err            error
}

// RenderSummary renders a boxed completion report for a run.
func RenderSummary(s Summary, precision int) string {
	var lines []string

	status := OKStyle.Render(IconOK + " completed")
	switch {
	case s.Err != nil && (errors.Is(s.Err, context.Canceled) || errors.Is(s.Err, context.DeadlineExceeded)):
		status = MutedStyle.Render(IconCancelled + " cancelled")
	case s.Err != nil:
		status = ErrorStyle.Render(IconFailed + " failed")
	}

	lines = append(lines,
		HeaderStyle.Render(s.Name)+"  "+status,
		row("run", s.RunID),
		row("tasks", FormatCount(s.CompletedTasks)+" of "+FormatCount(s.TotalTasks)+" dispatched"),
		row("windows", FormatCount(s.Windows)+" of size "+FormatCount(s.BatchSize)),
		row("progress", FormatPercent(s.Progress, precision)),
		row("results", FormatCount(s.Results)),
		row("elapsed", FormatDuration(s.Elapsed)),
	)
	if s.Err != nil {
		lines = append(lines, LabelStyle.Render("error    ")+ErrorStyle.Render(s.Err.Error()))
	}

	return BoxStyle.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	const labelWidth = 9
	return LabelStyle.Render(padRight(label, labelWidth)) + ValueStyle.Render(value)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

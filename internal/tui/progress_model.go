package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/batchrun/internal/engine/batch"
)

// RunState represents the current state of the run progress view.
type RunState int

const (
	// RunStateRunning indicates windows are still being dispatched.
	RunStateRunning RunState = iota
	// RunStateDone indicates the run finished successfully.
	RunStateDone
	// RunStateFailed indicates the run stopped on a task failure.
	RunStateFailed
	// RunStateCancelled indicates the user left the view before the run finished.
	RunStateCancelled
)

// ProgressMsg carries an executor progress report into the view.
type ProgressMsg batch.ProgressReport

// DoneMsg is sent once the run has returned.
type DoneMsg struct {
	Err error
}

// Default dimensions for the progress view.
const (
	progressDefaultWidth = 60
	progressMaxBarWidth  = 80
)

// percentLabelWidth returns the widest percentage label drawn after the bar,
// " 100%" plus a decimal point and precision digits.
func percentLabelWidth(precision int) int {
	width := len(" 100%")
	if precision > 0 {
		width += 1 + precision
	}
	return width
}

// barWidth sizes the bar so that it and its percentage label fit in width columns.
func barWidth(width, precision int) int {
	return max(1, min(width-percentLabelWidth(precision), progressMaxBarWidth))
}

// ProgressModel is the Bubble Tea model that renders a run's progress bar.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type ProgressModel struct {
	title   string
	tracker *batch.Tracker
	bar     progress.Model

	last  batch.ProgressReport
	state RunState
	err   error

	precision int
	width     int
}

// NewProgressModel creates a progress view for a run titled title.
// tracker supplies timing metrics; the caller keeps feeding it reports.
func NewProgressModel(title string, tracker *batch.Tracker, precision int) ProgressModel {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth(progressDefaultWidth, precision)),
		progress.WithoutPercentage(),
	)

	return ProgressModel{
		title:     title,
		tracker:   tracker,
		bar:       bar,
		state:     RunStateRunning,
		precision: precision,
		width:     progressDefaultWidth,
	}
}

// State returns the current run state.
func (m ProgressModel) State() RunState {
	return m.state
}

// LastReport returns the most recent progress report received.
func (m ProgressModel) LastReport() batch.ProgressReport {
	return m.last
}

// Err returns the run error, if the run failed.
func (m ProgressModel) Err() error {
	return m.err
}

// Init initializes the model (Bubble Tea interface).
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state (Bubble Tea interface).
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(msg.Width, m.precision)
		return m, nil

	case ProgressMsg:
		m.last = batch.ProgressReport(msg)
		return m, nil

	case DoneMsg:
		if msg.Err != nil {
			m.state = RunStateFailed
			m.err = msg.Err
		} else {
			m.state = RunStateDone
		}
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case keyQuit, keyCtrlC, keyEsc:
			if m.state == RunStateRunning {
				m.state = RunStateCancelled
			}
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the progress bar and counters (Bubble Tea interface).
func (m ProgressModel) View() string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Render(m.title))
	sb.WriteString("\n")
	sb.WriteString(m.bar.ViewAs(m.last.Progress / 100))
	sb.WriteString(" ")
	sb.WriteString(ValueStyle.Render(FormatPercent(m.last.Progress, m.precision)))
	sb.WriteString("\n")
	sb.WriteString(m.renderCounters())
	sb.WriteString("\n")

	switch m.state {
	case RunStateDone:
		sb.WriteString(OKStyle.Render(IconOK + " done"))
		sb.WriteString("\n")
	case RunStateFailed:
		sb.WriteString(ErrorStyle.Render(fmt.Sprintf("%s failed: %v", IconFailed, m.err)))
		sb.WriteString("\n")
	case RunStateCancelled:
		sb.WriteString(MutedStyle.Render(IconCancelled + " stopping after the current window"))
		sb.WriteString("\n")
	case RunStateRunning:
		sb.WriteString(MutedStyle.Render("press q to stop after the current window"))
		sb.WriteString("\n")
	}

	return lipgloss.NewStyle().MaxWidth(m.width).Render(sb.String())
}

func (m ProgressModel) renderCounters() string {
	parts := []string{
		LabelStyle.Render("tasks ") +
			ValueStyle.Render(FormatCount(m.last.CompletedTasks)+"/"+FormatCount(m.last.TotalTasks)),
	}

	if m.tracker != nil {
		snap := m.tracker.Snapshot()
		parts = append(parts,
			LabelStyle.Render("windows ")+
				ValueStyle.Render(FormatCount(snap.CompletedWindows)+"/"+FormatCount(snap.TotalWindows)),
			LabelStyle.Render("elapsed ")+ValueStyle.Render(FormatDuration(snap.ElapsedTime)),
		)
		if eta := roundDuration(snap.EstimatedTimeRemaining); m.state == RunStateRunning && eta > 0 {
			parts = append(parts, LabelStyle.Render("eta ")+ValueStyle.Render(eta.String()))
		}
	}

	return strings.Join(parts, MutedStyle.Render(" · "))
}

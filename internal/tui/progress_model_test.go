package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/batchrun/internal/engine/batch"
)

func TestNewProgressModel(t *testing.T) {
	tracker := batch.NewTracker(5, 2)
	m := NewProgressModel("demo", tracker, 2)

	assert.Equal(t, RunStateRunning, m.State())
	assert.Nil(t, m.Init())
	assert.Equal(t, batch.ProgressReport{}, m.LastReport())
	assert.Contains(t, m.View(), "demo")
}

func TestProgressModel_Update(t *testing.T) {
	t.Run("progress message updates the last report", func(t *testing.T) {
		tracker := batch.NewTracker(3, 1)
		m := NewProgressModel("run", tracker, 2)

		report := batch.ProgressReport{CompletedTasks: 1, TotalTasks: 3, Progress: 33.33}
		tracker.Observe(report)
		updated, cmd := m.Update(ProgressMsg(report))
		assert.Nil(t, cmd)

		pm, ok := updated.(ProgressModel)
		require.True(t, ok)
		assert.Equal(t, report, pm.LastReport())

		view := pm.View()
		assert.Contains(t, view, "33.33%")
		assert.Contains(t, view, "1/3")
	})

	t.Run("done quits", func(t *testing.T) {
		m := NewProgressModel("run", nil, 0)
		updated, cmd := m.Update(DoneMsg{})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
		assert.Equal(t, RunStateDone, updated.(ProgressModel).State())
		assert.Contains(t, updated.View(), "done")
	})

	t.Run("failure is recorded", func(t *testing.T) {
		m := NewProgressModel("run", nil, 0)
		boom := errors.New("boom")
		updated, cmd := m.Update(DoneMsg{Err: boom})
		require.NotNil(t, cmd)

		pm := updated.(ProgressModel)
		assert.Equal(t, RunStateFailed, pm.State())
		assert.Same(t, boom, pm.Err())
		assert.Contains(t, pm.View(), "boom")
	})

	t.Run("quit key cancels a running view", func(t *testing.T) {
		m := NewProgressModel("run", nil, 0)
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
		require.NotNil(t, cmd)
		assert.Equal(t, RunStateCancelled, updated.(ProgressModel).State())
	})

	t.Run("ctrl+c cancels", func(t *testing.T) {
		m := NewProgressModel("run", nil, 0)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.Equal(t, RunStateCancelled, updated.(ProgressModel).State())
	})

	t.Run("other keys are ignored", func(t *testing.T) {
		m := NewProgressModel("run", nil, 0)
		updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
		assert.Nil(t, cmd)
		assert.Equal(t, RunStateRunning, updated.(ProgressModel).State())
	})

	t.Run("window resize", func(t *testing.T) {
		m := NewProgressModel("run", nil, 0)
		updated, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
		pm := updated.(ProgressModel)
		assert.Equal(t, 200, pm.width)
		assert.Equal(t, progressMaxBarWidth, pm.bar.Width)

		updated, _ = pm.Update(tea.WindowSizeMsg{Width: 2, Height: 40})
		assert.Equal(t, 1, updated.(ProgressModel).bar.Width)
	})
}

func TestProgressModel_PercentLabelFits(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		precision int
		progress  float64
		want      string
	}{
		{name: "default width", progress: 33.33, precision: 2, want: "33.33%"},
		{name: "narrow terminal", width: 40, progress: 33.33, precision: 2, want: "33.33%"},
		{name: "complete", width: 40, progress: 100, precision: 2, want: "100.00%"},
		{name: "no decimals", width: 30, progress: 100, precision: 0, want: "100%"},
		{name: "wide terminal", width: 200, progress: 66.67, precision: 1, want: "66.7%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = NewProgressModel("run", nil, tt.precision)
			width := progressDefaultWidth
			if tt.width > 0 {
				width = tt.width
				m, _ = m.Update(tea.WindowSizeMsg{Width: tt.width, Height: 24})
			}
			m, _ = m.Update(ProgressMsg(batch.ProgressReport{TotalTasks: 3, Progress: tt.progress}))

			var barLine string
			for _, line := range strings.Split(m.View(), "\n") {
				if strings.Contains(line, "%") {
					barLine = line
					break
				}
			}
			assert.Contains(t, barLine, tt.want)
			assert.LessOrEqual(t, lipgloss.Width(barLine), width)
		})
	}
}

func TestProgressModel_ETA(t *testing.T) {
	report := batch.ProgressReport{CompletedTasks: 1, TotalTasks: 3, Progress: 33.33}

	viewAfter := func(elapsed time.Duration) string {
		tracker := batch.NewTracker(3, 1)
		tracker.Observe(report)
		tracker.StartTime = time.Now().Add(-time.Minute)
		tracker.LastUpdateTime = tracker.StartTime.Add(elapsed)

		m, _ := NewProgressModel("run", tracker, 2).Update(ProgressMsg(report))
		return m.View()
	}

	t.Run("shown once measurable", func(t *testing.T) {
		view := viewAfter(2 * time.Second)
		assert.Contains(t, view, "eta")
		assert.Contains(t, view, "4s")
	})

	t.Run("hidden when it rounds to zero", func(t *testing.T) {
		assert.NotContains(t, viewAfter(100*time.Microsecond), "eta")
	})
}

func TestRenderSummary(t *testing.T) {
	s := Summary{
		Name:           "demo",
		RunID:          "01HZY3J6D6QK6Y8H8D7X1Y2Z3A",
		TotalTasks:     12000,
		CompletedTasks: 12000,
		Windows:        3,
		BatchSize:      5000,
		Results:        11999,
		Progress:       100,
	}

	out := RenderSummary(s, 1)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "12,000 of 12,000")
	assert.Contains(t, out, "11,999")
	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, s.RunID)

	s.Err = errors.New("task \"c\": boom")
	out = RenderSummary(s, 1)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "boom")
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "18,248", FormatCount(18248))
	assert.Equal(t, "66.67%", FormatPercent(66.67, 2))
	assert.Equal(t, "67%", FormatPercent(66.67, 0))
	assert.Equal(t, "0%", FormatPercent(0, -1))
	assert.Equal(t, "450ms", FormatDuration(450*time.Millisecond))
	assert.Equal(t, "0s", FormatDuration(200*time.Microsecond))
	assert.Equal(t, "1.5s", FormatDuration(1520*time.Millisecond))
}

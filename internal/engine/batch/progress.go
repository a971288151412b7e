package batch

import (
	"math"
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// percentScale keeps two decimal places when rounding a percentage.
const percentScale = 100

// ProgressReport is emitted once before any task runs and once after each window settles.
// CompletedTasks counts tasks dispatched through the last settled window, not successes.
type ProgressReport struct {
	CompletedTasks int     `json:"completedTasks"`
	TotalTasks     int     `json:"totalTasks"`
	Progress       float64 `json:"progress"`
}

// ProgressCallback is an optional callback invoked with each progress report.
// It is called synchronously from the goroutine running the executor.
type ProgressCallback func(report ProgressReport)

// Percent returns completedTasks/totalTasks as a percentage rounded to two decimals.
// It returns 0 when totalTasks is not positive.
func Percent(completedTasks, totalTasks int) float64 {
	if totalTasks <= 0 {
		return 0
	}
	ratio := float64(completedTasks) / float64(totalTasks) * percentMultiplier
	return math.Round(ratio*percentScale) / percentScale
}

// Tracker accumulates progress reports for a single run and derives timing
// metrics from them. Observe may be used directly as a ProgressCallback.
// It provides thread-safe access so a renderer can snapshot while a run is in flight.
type Tracker struct {
	// TotalTasks is the total number of tasks in the run.
	TotalTasks int

	// CompletedTasks is the number of tasks dispatched through the last settled window.
	CompletedTasks int

	// TotalWindows is the number of windows the run is split into.
	TotalWindows int

	// CompletedWindows is the number of windows that have settled.
	CompletedWindows int

	// BatchSize is the configured window size.
	BatchSize int

	// Progress is the most recently reported percentage.
	Progress float64

	// StartTime is when tracking started.
	StartTime time.Time

	// LastUpdateTime is when progress was last updated.
	LastUpdateTime time.Time

	// mu protects concurrent access to tracker fields.
	mu sync.RWMutex
}

// NewTracker creates a tracker for a run of totalTasks tasks in windows of batchSize.
func NewTracker(totalTasks, batchSize int) *Tracker {
	now := time.Now()
	return &Tracker{
		TotalTasks:     totalTasks,
		TotalWindows:   WindowCount(totalTasks, batchSize),
		BatchSize:      batchSize,
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Observe records a progress report. Reports that advance CompletedTasks count
// as one settled window; the initial zero report does not.
func (t *Tracker) Observe(report ProgressReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if report.CompletedTasks > t.CompletedTasks {
		t.CompletedWindows++
	}
	t.CompletedTasks = report.CompletedTasks
	t.Progress = report.Progress
	if report.TotalTasks > 0 {
		t.TotalTasks = report.TotalTasks
	}
	t.LastUpdateTime = time.Now()
}

// PercentComplete returns the completion percentage (0-100).
func (t *Tracker) PercentComplete() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.Progress
}

// IsComplete returns true if all tasks have been dispatched and settled.
func (t *Tracker) IsComplete() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.TotalTasks > 0 && t.CompletedTasks >= t.TotalTasks
}

// ElapsedTime returns the time elapsed since tracking started.
func (t *Tracker) ElapsedTime() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return time.Since(t.StartTime)
}

// EstimatedTimeRemaining estimates the remaining run time based on current progress.
// Returns 0 if no tasks have completed yet.
func (t *Tracker) EstimatedTimeRemaining() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.estimatedTimeRemainingUnsafe()
}

// TasksPerSecond returns the throughput in tasks per second.
func (t *Tracker) TasksPerSecond() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.tasksPerSecondUnsafe()
}

// Snapshot returns a thread-safe copy of the current tracker state.
func (t *Tracker) Snapshot() TrackerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return TrackerSnapshot{
		TotalTasks:             t.TotalTasks,
		CompletedTasks:         t.CompletedTasks,
		TotalWindows:           t.TotalWindows,
		CompletedWindows:       t.CompletedWindows,
		BatchSize:              t.BatchSize,
		Progress:               t.Progress,
		StartTime:              t.StartTime,
		LastUpdateTime:         t.LastUpdateTime,
		ElapsedTime:            time.Since(t.StartTime),
		TasksPerSecond:         t.tasksPerSecondUnsafe(),
		EstimatedTimeRemaining: t.estimatedTimeRemainingUnsafe(),
	}
}

// TrackerSnapshot is an immutable snapshot of tracker state.
type TrackerSnapshot struct {
	TotalTasks             int
	CompletedTasks         int
	TotalWindows           int
	CompletedWindows       int
	BatchSize              int
	Progress               float64
	StartTime              time.Time
	LastUpdateTime         time.Time
	ElapsedTime            time.Duration
	TasksPerSecond         float64
	EstimatedTimeRemaining time.Duration
}

// tasksPerSecondUnsafe must be called with the lock held.
func (t *Tracker) tasksPerSecondUnsafe() float64 {
	elapsed := time.Since(t.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(t.CompletedTasks) / elapsed
}

// estimatedTimeRemainingUnsafe must be called with the lock held.
func (t *Tracker) estimatedTimeRemainingUnsafe() time.Duration {
	if t.CompletedTasks == 0 {
		return 0
	}

	elapsed := t.LastUpdateTime.Sub(t.StartTime)
	avgPerTask := elapsed / time.Duration(t.CompletedTasks)
	remaining := t.TotalTasks - t.CompletedTasks
	if remaining <= 0 {
		return 0
	}
	return avgPerTask * time.Duration(remaining)
}

// Reset resets the tracker to its initial state and restarts the clock.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.CompletedTasks = 0
	t.CompletedWindows = 0
	t.Progress = 0
	t.StartTime = now
	t.LastUpdateTime = now
}

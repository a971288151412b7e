package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Pre-flight errors. All of them match ErrInvalidArgument with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrEmptyTasks       = fmt.Errorf("%w: tasks must be non-empty", ErrInvalidArgument)
	ErrInvalidBatchSize = fmt.Errorf("%w: batchSize must be > 0", ErrInvalidArgument)
	ErrNilTask          = fmt.Errorf("%w: task must not be nil", ErrInvalidArgument)
)

// Task is a deferred unit of work producing one value or failing once.
// The context is the one passed to Run; the executor never derives or cancels it.
type Task[T any] func(ctx context.Context) (T, error)

// Executor runs tasks in fixed-size sequential windows.
// An Executor holds no per-run state and may be reused for any number of runs.
type Executor[T any] struct {
	// onProgress is an optional callback for progress updates.
	onProgress ProgressCallback

	// filter decides which task outputs are kept. nil keeps everything.
	filter ResultFilter[T]

	logger zerolog.Logger
}

// NewExecutor creates an executor that keeps every output and reports no progress.
func NewExecutor[T any]() *Executor[T] {
	return &Executor[T]{
		logger: zerolog.Nop(),
	}
}

// WithProgressCallback sets the progress callback for the executor.
func (e *Executor[T]) WithProgressCallback(callback ProgressCallback) *Executor[T] {
	e.onProgress = callback
	return e
}

// WithResultFilter sets the keep-policy applied to every task output.
func (e *Executor[T]) WithResultFilter(filter ResultFilter[T]) *Executor[T] {
	e.filter = filter
	return e
}

// WithLogger sets the logger used for debug-level window tracing.
func (e *Executor[T]) WithLogger(logger zerolog.Logger) *Executor[T] {
	e.logger = logger
	return e
}

// Run executes tasks in windows of batchSize and returns the kept outputs in
// submission order.
//
// Windows run strictly one after another. If any task in a window fails, Run
// waits for the rest of that window to settle and then returns the first
// failure unchanged; later windows are never dispatched and outputs collected
// so far are discarded. ctx is checked only between windows.
func (e *Executor[T]) Run(ctx context.Context, tasks []Task[T], batchSize int) ([]T, error) {
	if err := validate(tasks, batchSize); err != nil {
		return nil, err
	}

	totalTasks := len(tasks)
	windows := Windows(totalTasks, batchSize)
	results := make([]T, 0, totalTasks)
	completedTasks := 0

	e.report(completedTasks, totalTasks)

	for windowIndex, bounds := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		window := tasks[bounds[0]:bounds[1]]
		outputs, err := runWindow(ctx, window)
		if err != nil {
			e.logger.Debug().Ctx(ctx).
				Int("window", windowIndex).
				Int("windows", len(windows)).
				Err(err).
				Msg("window failed")
			return nil, err
		}

		for _, output := range outputs {
			if e.filter == nil || e.filter(output) {
				results = append(results, output)
			}
		}

		completedTasks += len(window)
		e.logger.Debug().Ctx(ctx).
			Int("window", windowIndex).
			Int("windows", len(windows)).
			Int("completed_tasks", completedTasks).
			Int("total_tasks", totalTasks).
			Msg("window settled")

		e.report(completedTasks, totalTasks)
	}

	return results, nil
}

// Run executes tasks with the default executor: every output is kept.
func Run[T any](ctx context.Context, tasks []Task[T], batchSize int, onProgress ProgressCallback) ([]T, error) {
	return NewExecutor[T]().WithProgressCallback(onProgress).Run(ctx, tasks, batchSize)
}

// RunOptional executes tasks that explicitly signal whether they produced a
// result. Absent outputs are dropped; present zero values are kept.
func RunOptional[T any](
	ctx context.Context,
	tasks []Task[Optional[T]],
	batchSize int,
	onProgress ProgressCallback,
) ([]T, error) {
	outputs, err := NewExecutor[Optional[T]]().
		WithProgressCallback(onProgress).
		WithResultFilter(Present[T]()).
		Run(ctx, tasks, batchSize)
	if err != nil {
		return nil, err
	}
	return Values(outputs), nil
}

// runWindow starts every task in window before joining any of them. Each
// goroutine writes only its own slot, so outputs keep the window's order.
func runWindow[T any](ctx context.Context, window []Task[T]) ([]T, error) {
	outputs := make([]T, len(window))

	var g errgroup.Group
	for slot, task := range window {
		g.Go(func() error {
			output, err := task(ctx)
			if err != nil {
				return err
			}
			outputs[slot] = output
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (e *Executor[T]) report(completedTasks, totalTasks int) {
	if e.onProgress == nil {
		return
	}
	e.onProgress(ProgressReport{
		CompletedTasks: completedTasks,
		TotalTasks:     totalTasks,
		Progress:       Percent(completedTasks, totalTasks),
	})
}

func validate[T any](tasks []Task[T], batchSize int) error {
	if len(tasks) == 0 {
		return ErrEmptyTasks
	}
	if batchSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	for i, task := range tasks {
		if task == nil {
			return fmt.Errorf("%w: index %d", ErrNilTask, i)
		}
	}
	return nil
}

// Windows returns the [start, end) boundaries of each window for totalTasks
// tasks split into windows of batchSize. It returns nil when either argument
// is not positive.
func Windows(totalTasks, batchSize int) [][2]int {
	if totalTasks <= 0 || batchSize <= 0 {
		return nil
	}

	windows := make([][2]int, WindowCount(totalTasks, batchSize))
	for i := range windows {
		start := i * batchSize
		end := min(start+batchSize, totalTasks)
		windows[i] = [2]int{start, end}
	}
	return windows
}

// WindowCount returns ceil(totalTasks / batchSize), or 0 for non-positive arguments.
func WindowCount(totalTasks, batchSize int) int {
	if totalTasks <= 0 || batchSize <= 0 {
		return 0
	}
	windows := totalTasks / batchSize
	if totalTasks%batchSize > 0 {
		windows++
	}
	return windows
}

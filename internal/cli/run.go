package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/logging"
	"github.com/rshade/batchrun/internal/plan"
	"github.com/rshade/batchrun/internal/tui"
)

// runOptions holds the flags of the run command.
type runOptions struct {
	batchSize    int
	resultPolicy string
	output       string
	noProgress   bool
}

// planTask is the task type produced by plan files.
type planTask = batch.Task[batch.Optional[string]]

// NewRunCmd creates the run command, which executes a plan through the batch executor.
func NewRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run PLAN",
		Short: "Run a task plan in fixed-size windows",
		Long: `Runs every task in PLAN, batch-size tasks at a time. A window starts only
after every task of the previous window has finished. Results are printed in
plan order. The first failing task stops the run after its window settles.

The window size is taken from --batch-size, then the plan's batch_size, then
executor.batch_size from the configuration.`,
		Example: `  # Run with the configured batch size
  batchrun run plan.yaml

  # Run two tasks at a time, printing one result per line
  batchrun run plan.yaml --batch-size 2 --output plain

  # Emit JSON and log progress instead of drawing a progress bar
  batchrun run plan.yaml --output json --no-progress`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVarP(&opts.batchSize, "batch-size", "b", 0, "number of tasks per window")
	cmd.Flags().StringVar(&opts.resultPolicy, "result-policy", "",
		"which results to keep: keep_all or drop_empty (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output format: table, json or plain (default from config)")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "log progress lines instead of drawing a progress bar")

	return cmd
}

// runPlan loads the plan, runs it and renders the outcome.
func runPlan(cmd *cobra.Command, path string, opts runOptions) error {
	ctx := cmd.Context()
	log := logging.FromContext(ctx)
	audit := newAuditContext(ctx, "run", map[string]string{"plan": path})
	cfg := config.GetGlobalConfig()

	format := opts.output
	if format == "" {
		format = cfg.Output.DefaultFormat
	}
	if !isValidOutputFormat(format) {
		return fmt.Errorf("%w: unknown output format %q", config.ErrInvalidValue, format)
	}

	policy := opts.resultPolicy
	if policy == "" {
		policy = cfg.Executor.ResultPolicy
	}
	filter, err := resultFilter(policy)
	if err != nil {
		return err
	}

	p, err := plan.Load(path)
	if err != nil {
		audit.logFailure(ctx, err)
		return err
	}

	batchSize := resolveBatchSize(cmd, opts.batchSize, p.BatchSize)
	tasks := p.BuildTasks()
	tracker := batch.NewTracker(len(tasks), batchSize)

	exec := batch.NewExecutor[batch.Optional[string]]().
		WithResultFilter(filter).
		WithLogger(logging.ComponentLogger(*log, "executor"))

	log.Debug().Ctx(ctx).
		Str("plan", p.DisplayName()).
		Int("tasks", len(tasks)).
		Int("batch_size", batchSize).
		Str("result_policy", policy).
		Msg("starting run")

	start := time.Now()
	var outputs []batch.Optional[string]
	if !opts.noProgress && format != formatJSON && isTerminal(os.Stderr) {
		outputs, err = runWithProgressView(ctx, cmd, exec, tasks, batchSize, tracker, p.DisplayName())
	} else {
		outputs, err = runWithProgressLog(ctx, *log, exec, tasks, batchSize, tracker)
	}

	results := batch.Values(outputs)
	snap := tracker.Snapshot()
	summary := tui.Summary{
		Name:           p.DisplayName(),
		RunID:          logging.RunIDFromContext(ctx),
		TotalTasks:     len(tasks),
		CompletedTasks: snap.CompletedTasks,
		Windows:        snap.TotalWindows,
		BatchSize:      batchSize,
		Results:        len(results),
		Progress:       snap.Progress,
		Elapsed:        time.Since(start),
		Err:            err,
	}

	if err != nil {
		audit.logFailure(ctx, err)
		log.Error().Ctx(ctx).Err(err).
			Int("completed_tasks", snap.CompletedTasks).
			Int("total_tasks", len(tasks)).
			Msg("run failed")
		if format == formatTable && !errors.Is(err, batch.ErrInvalidArgument) {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), tui.RenderSummary(summary, config.GetOutputPrecision()))
		}
		return newRunExitError(err)
	}

	audit.logSuccess(ctx, len(tasks), len(results))
	log.Debug().Ctx(ctx).Int("results", len(results)).Dur("elapsed", summary.Elapsed).Msg("run finished")

	return renderRun(cmd, format, summary, results)
}

// runWithProgressLog runs the executor and logs each progress report at info level.
func runWithProgressLog(
	ctx context.Context,
	log zerolog.Logger,
	exec *batch.Executor[batch.Optional[string]],
	tasks []planTask,
	batchSize int,
	tracker *batch.Tracker,
) ([]batch.Optional[string], error) {
	exec.WithProgressCallback(func(report batch.ProgressReport) {
		tracker.Observe(report)
		log.Info().Ctx(ctx).
			Int("completed_tasks", report.CompletedTasks).
			Int("total_tasks", report.TotalTasks).
			Float64("progress", report.Progress).
			Msg("progress")
	})
	return exec.Run(ctx, tasks, batchSize)
}

// runWithProgressView runs the executor in the background while a Bubble Tea
// progress bar renders on stderr. Leaving the view cancels the run; the
// executor notices at the next window boundary.
func runWithProgressView(
	ctx context.Context,
	cmd *cobra.Command,
	exec *batch.Executor[batch.Optional[string]],
	tasks []planTask,
	batchSize int,
	tracker *batch.Tracker,
	title string,
) ([]batch.Optional[string], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewProgressModel(title, tracker, config.GetOutputPrecision())
	program := tea.NewProgram(model,
		tea.WithOutput(cmd.ErrOrStderr()),
		tea.WithInput(cmd.InOrStdin()),
	)

	type outcome struct {
		outputs []batch.Optional[string]
		err     error
	}
	done := make(chan outcome, 1)

	exec.WithProgressCallback(func(report batch.ProgressReport) {
		tracker.Observe(report)
		program.Send(tui.ProgressMsg(report))
	})

	go func() {
		outputs, err := exec.Run(ctx, tasks, batchSize)
		program.Send(tui.DoneMsg{Err: err})
		done <- outcome{outputs: outputs, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-done
		return nil, fmt.Errorf("running progress view: %w", err)
	}

	cancel()
	res := <-done
	return res.outputs, res.err
}

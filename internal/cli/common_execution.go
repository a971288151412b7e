package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/logging"
)

// Exit codes returned through RunExitError.
const (
	exitCodeTaskFailure = 2
	exitCodeCancelled   = 130
)

// RunExitError carries a non-default process exit code for a failed run.
type RunExitError struct {
	ExitCode int
	Err      error
}

func (e *RunExitError) Error() string {
	return e.Err.Error()
}

func (e *RunExitError) Unwrap() error {
	return e.Err
}

// newRunExitError classifies a run error into an exit code. Pre-flight
// argument errors are returned as-is so they exit with the default code.
func newRunExitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, batch.ErrInvalidArgument):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &RunExitError{ExitCode: exitCodeCancelled, Err: err}
	default:
		return &RunExitError{ExitCode: exitCodeTaskFailure, Err: err}
	}
}

// auditContext holds common context for audit logging within a command.
type auditContext struct {
	logger  logging.AuditLogger
	runID   string
	params  map[string]string
	start   time.Time
	command string
}

// newAuditContext creates a new audit context.
func newAuditContext(ctx context.Context, command string, params map[string]string) *auditContext {
	return &auditContext{
		logger:  logging.AuditLoggerFromContext(ctx),
		runID:   logging.RunIDFromContext(ctx),
		params:  params,
		start:   time.Now(),
		command: command,
	}
}

// logFailure logs an audit entry for a failed operation.
func (a *auditContext) logFailure(ctx context.Context, err error) {
	entry := logging.NewAuditEntry(a.command, a.runID).
		WithParameters(a.params).
		WithError(err.Error()).
		WithDuration(a.start)
	a.logger.Log(ctx, *entry)
}

// logSuccess logs an audit entry for a successful operation.
func (a *auditContext) logSuccess(ctx context.Context, taskCount, resultCount int) {
	entry := logging.NewAuditEntry(a.command, a.runID).
		WithParameters(a.params).
		WithSuccess(taskCount, resultCount).
		WithDuration(a.start)
	a.logger.Log(ctx, *entry)
}

// resolveBatchSize picks the window size: an explicit flag wins, then the
// plan's batch_size, then the configured default.
func resolveBatchSize(cmd *cobra.Command, flagValue, planValue int) int {
	if cmd.Flags().Changed("batch-size") {
		return flagValue
	}
	if planValue > 0 {
		return planValue
	}
	return config.GetDefaultBatchSize()
}

// resultFilter maps a configured result policy to the executor filter for plan tasks.
// Absent results are always dropped; drop_empty also drops present empty strings.
func resultFilter(policy string) (batch.ResultFilter[batch.Optional[string]], error) {
	switch policy {
	case "", config.ResultPolicyKeepAll:
		return batch.Present[string](), nil
	case config.ResultPolicyDropEmpty:
		return batch.PresentNonZero[string](), nil
	default:
		return nil, fmt.Errorf("%w: unknown result policy %q (want %s or %s)",
			config.ErrInvalidValue, policy, config.ResultPolicyKeepAll, config.ResultPolicyDropEmpty)
	}
}

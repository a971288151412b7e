package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEntry records the outcome of one CLI command.
type AuditEntry struct {
	Command    string
	RunID      string
	Parameters map[string]string
	Success    bool
	TaskCount  int
	ResultSize int
	Error      string
	Duration   time.Duration
	Timestamp  time.Time
}

// NewAuditEntry starts an entry for command within run runID.
func NewAuditEntry(command, runID string) *AuditEntry {
	return &AuditEntry{
		Command:   command,
		RunID:     runID,
		Timestamp: time.Now(),
	}
}

// WithParameters attaches command parameters.
func (e *AuditEntry) WithParameters(params map[string]string) *AuditEntry {
	e.Parameters = params
	return e
}

// WithSuccess marks the entry successful.
func (e *AuditEntry) WithSuccess(taskCount, resultSize int) *AuditEntry {
	e.Success = true
	e.TaskCount = taskCount
	e.ResultSize = resultSize
	return e
}

// WithError marks the entry failed.
func (e *AuditEntry) WithError(msg string) *AuditEntry {
	e.Success = false
	e.Error = msg
	return e
}

// WithDuration sets the duration measured from start.
func (e *AuditEntry) WithDuration(start time.Time) *AuditEntry {
	e.Duration = time.Since(start)
	return e
}

// AuditLogger persists audit entries.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry)
	Enabled() bool
	Close() error
}

// AuditLoggerConfig controls audit logging.
type AuditLoggerConfig struct {
	Enabled bool
	File    string
}

// NewAuditLogger returns a JSON-lines audit logger, or a no-op logger when
// auditing is disabled or the file cannot be opened.
func NewAuditLogger(cfg AuditLoggerConfig) AuditLogger {
	if !cfg.Enabled {
		return nopAuditLogger{}
	}
	if cfg.File == "" {
		return newZerologAuditLogger(os.Stderr, nil)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nopAuditLogger{}
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nopAuditLogger{}
	}
	return newZerologAuditLogger(f, f)
}

// NewAuditLoggerWithWriter returns an audit logger writing JSON lines to w.
func NewAuditLoggerWithWriter(w io.Writer) AuditLogger {
	return newZerologAuditLogger(w, nil)
}

type zerologAuditLogger struct {
	mu     sync.Mutex
	logger zerolog.Logger
	closer io.Closer
}

func newZerologAuditLogger(w io.Writer, closer io.Closer) *zerologAuditLogger {
	return &zerologAuditLogger{
		logger: zerolog.New(w).With().Str("log_type", "audit").Logger(),
		closer: closer,
	}
}

func (a *zerologAuditLogger) Log(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	event := a.logger.Log().
		Time("timestamp", entry.Timestamp).
		Str("command", entry.Command).
		Str("run_id", entry.RunID).
		Bool("success", entry.Success).
		Int("task_count", entry.TaskCount).
		Int("result_count", entry.ResultSize).
		Int64("duration_ms", entry.Duration.Milliseconds())
	if len(entry.Parameters) > 0 {
		params := zerolog.Dict()
		for k, v := range entry.Parameters {
			params = params.Str(k, v)
		}
		event = event.Dict("parameters", params)
	}
	if entry.Error != "" {
		event = event.Str("error", entry.Error)
	}
	event.Send()
}

func (a *zerologAuditLogger) Enabled() bool { return true }

func (a *zerologAuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

type nopAuditLogger struct{}

func (nopAuditLogger) Log(context.Context, AuditEntry) {}
func (nopAuditLogger) Enabled() bool                   { return false }
func (nopAuditLogger) Close() error                    { return nil }

type auditLoggerKey struct{}

// ContextWithAuditLogger returns a copy of ctx carrying logger.
func ContextWithAuditLogger(ctx context.Context, logger AuditLogger) context.Context {
	return context.WithValue(ctx, auditLoggerKey{}, logger)
}

// AuditLoggerFromContext returns the audit logger in ctx, or a no-op logger.
func AuditLoggerFromContext(ctx context.Context) AuditLogger {
	if ctx != nil {
		if logger, ok := ctx.Value(auditLoggerKey{}).(AuditLogger); ok && logger != nil {
			return logger
		}
	}
	return nopAuditLogger{}
}

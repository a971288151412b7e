package logging

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

type runIDKey struct{}

// NewRunID returns a new lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// ContextWithRunID returns a copy of ctx carrying runID.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run ID carried by ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// GetOrGenerateRunID returns the run ID in ctx, generating one when absent.
func GetOrGenerateRunID(ctx context.Context) string {
	if id := RunIDFromContext(ctx); id != "" {
		return id
	}
	return NewRunID()
}

// IsValidRunID reports whether id parses as a ULID.
func IsValidRunID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// runIDHook adds run_id to events logged with Ctx(ctx).
type runIDHook struct{}

func (runIDHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	if id := RunIDFromContext(e.GetCtx()); id != "" {
		e.Str("run_id", id)
	}
}

package logging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID correlates every log line of one command invocation.
	FieldSessionID = "session_id"
	// FieldCommand is the cmd360 subcommand being executed.
	FieldCommand = "command"
	// FieldHost is the device address a command talks to.
	FieldHost = "host"
	// FieldSource is the local file a put is processing.
	FieldSource = "source"
	// FieldRemote is the file name on the device.
	FieldRemote = "remote"
	// FieldEventType is the standardized key for machine-readable event classification.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized key for operator guidance on warnings.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type sessionKey struct{}

// WithSession returns a context carrying a fresh session identifier, unless
// one is already present.
func WithSession(ctx context.Context) context.Context {
	if _, ok := SessionIDFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, uuid.NewString())
}

// SessionIDFromContext returns the session identifier stored by WithSession.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(sessionKey{}).(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := SessionIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldSessionID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}

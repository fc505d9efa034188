package logx

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/codelia/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	sessionKey contextKey = iota
	runKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with a session id when available.
func WithSession(log pslog.Logger, sessionID schema.SessionID) pslog.Logger {
	if sessionID != "" {
		log = log.With("session", sessionID)
	}
	return log
}

// WithRun annotates the logger with a run id when available.
func WithRun(log pslog.Logger, runID schema.RunID) pslog.Logger {
	if runID != "" {
		log = log.With("run", runID)
	}
	return log
}

// SessionCtx returns the context logger annotated with the session id unless
// the context already carries it.
func SessionCtx(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
		return log
	}
	return WithSession(log, sessionID)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithRun stores the run marker on the context.
func ContextWithRun(ctx context.Context, runID schema.RunID) context.Context {
	if ctx == nil || runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey, runID)
}

// RunFromContext returns the run marker, if any.
func RunFromContext(ctx context.Context) schema.RunID {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runKey).(schema.RunID)
	return id
}

// Options maps a config level name to structured file logger options.
// Unknown names map to info; "off" reports false.
func Options(level string) (pslog.Options, bool) {
	opts := pslog.Options{Mode: pslog.ModeStructured, NoColor: true, MinLevel: pslog.InfoLevel}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "none", "disabled":
		return opts, false
	case "trace":
		opts.MinLevel = pslog.TraceLevel
	case "debug":
		opts.MinLevel = pslog.DebugLevel
	case "warn", "warning":
		opts.MinLevel = pslog.WarnLevel
	case "error":
		opts.MinLevel = pslog.ErrorLevel
	}
	return opts, true
}

// OpenFile builds a structured logger appending to path. The terminal belongs
// to the UI, so nothing is written to stdout or stderr. The returned closer
// must be called on exit.
func OpenFile(path, level string) (pslog.Logger, io.Closer, error) {
	opts, enabled := Options(level)
	if !enabled || strings.TrimSpace(path) == "" {
		return pslog.NewWithOptions(io.Discard, opts), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return pslog.NewWithOptions(f, opts), f, nil
}

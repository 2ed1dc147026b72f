package log

import (
	"context"
	"log/slog"
)

// Logger is the structured logger interface every hub package logs
// through. It mirrors slog.Logger's calling convention but adds Trace
// and Crit to match the verbosity scale defined in level.go.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)
	Log(level slog.Level, msg string, ctx ...any)

	// With returns a Logger that always includes the given attrs.
	With(ctx ...any) Logger
	// New is an alias for With, kept for callers that read better
	// spawning a "new" child logger than "adding" attrs to one.
	New(ctx ...any) Logger

	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps h as a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) write(level slog.Level, msg string, ctx []any) {
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...any)  { l.write(LevelCrit, msg, ctx) }

func (l *logger) Log(level slog.Level, msg string, ctx ...any) {
	l.write(level, msg, ctx)
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) New(ctx ...any) Logger {
	return l.With(ctx...)
}

func (l *logger) Handler() slog.Handler {
	return l.inner.Handler()
}

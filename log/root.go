package log

import (
	"os"
	"sync/atomic"
)

var defaultLogger atomic.Value

func init() {
	defaultLogger.Store(NewLogger(NewTerminalHandler(os.Stderr, false)))
}

// SetDefault installs l as the logger the package-level Trace/Debug/...
// functions and Root() forward to.
func SetDefault(l Logger) {
	defaultLogger.Store(l)
}

// Root returns the current default Logger.
func Root() Logger {
	return defaultLogger.Load().(Logger)
}

func New(ctx ...any) Logger { return Root().New(ctx...) }

func Trace(msg string, ctx ...any) { Root().Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { Root().Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { Root().Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { Root().Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { Root().Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { Root().Crit(msg, ctx...) }

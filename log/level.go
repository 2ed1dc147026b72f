package log

import "log/slog"

// Level extends slog's four levels with Trace (below Debug) and Crit
// (above Error), matching the verbosity scale every hub component logs
// against.
const (
	LevelTrace slog.Level = slog.Level(-8)
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelCrit  slog.Level = slog.Level(12)
)

// LevelAlignedString returns lvl's name padded to a fixed width so
// terminal log lines line up in a column regardless of level name
// length.
func LevelAlignedString(lvl slog.Level) string {
	switch lvl {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO "
	case LevelWarn:
		return "WARN "
	case LevelError:
		return "ERROR"
	case LevelCrit:
		return "CRIT "
	default:
		return lvl.String()
	}
}

package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// TerminalHandler renders records as human-readable lines: a
// fixed-width level, a timestamp, the message padded to a fixed column,
// then space-separated key=value attrs.
type TerminalHandler struct {
	mu       *sync.Mutex
	wr       io.Writer
	level    slog.Leveler
	useColor bool
	attrs    []slog.Attr
}

// NewTerminalHandler returns a TerminalHandler that shows everything
// down to Trace level.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	return NewTerminalHandlerWithLevel(wr, LevelTrace, useColor)
}

// NewTerminalHandlerWithLevel returns a TerminalHandler filtered to lvl
// and above.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Leveler, useColor bool) *TerminalHandler {
	return &TerminalHandler{mu: new(sync.Mutex), wr: wr, level: lvl, useColor: useColor}
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)
	buf.WriteString(LevelAlignedString(r.Level))
	buf.WriteByte('[')
	writeTimeTermFormat(buf, r.Time)
	buf.WriteString("] ")
	buf.WriteString(r.Message)
	if n := len(r.Message); n < termMsgJust {
		buf.WriteString(spaces(termMsgJust - n))
	}
	buf.WriteByte(' ')

	first := true
	writeAttr := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if !first {
			buf.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(buf, "%s=%s", a.Key, formatLogfmtValue(a.Value.Any()))
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.wr.Write(buf.Bytes())
	return err
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *TerminalHandler) WithGroup(_ string) slog.Handler {
	return h
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// JSONHandler returns a slog.Handler that writes one JSON object per
// record, showing everything down to Trace level.
func JSONHandler(wr io.Writer) slog.Handler {
	return JSONHandlerWithLevel(wr, LevelTrace)
}

// JSONHandlerWithLevel returns a JSON slog.Handler filtered to lvl and
// above.
func JSONHandlerWithLevel(wr io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: lvl})
}

// LogfmtHandler returns a slog.Handler writing classic space-separated
// key=value lines, showing everything down to Trace level.
func LogfmtHandler(wr io.Writer) slog.Handler {
	return LogfmtHandlerWithLevel(wr, LevelTrace)
}

// LogfmtHandlerWithLevel returns a logfmt slog.Handler filtered to lvl
// and above.
func LogfmtHandlerWithLevel(wr io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{Level: lvl})
}

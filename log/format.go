package log

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// termMsgJust is the column the message field is padded to so a line's
// key=value attrs start in the same place regardless of message length.
const termMsgJust = 40

const termTimeLayout = "01-02|15:04:05.000"

func writeTimeTermFormat(buf interface{ Write([]byte) (int, error) }, t time.Time) {
	buf.Write(t.AppendFormat(nil, termTimeLayout))
}

// formatLogfmtValue renders a single attribute value the way a terminal
// or logfmt line displays it: quoted when it contains whitespace,
// comma-grouped for integer magnitudes, and a fixed layout for times.
func formatLogfmtValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	switch v := value.(type) {
	case time.Time:
		return string(v.AppendFormat(nil, "2006-01-02T15:04:05-0700"))
	case *big.Int:
		if v == nil {
			return "<nil>"
		}
		return groupDigits(v.String())
	case *uint256.Int:
		if v == nil {
			return "<nil>"
		}
		return groupDigits(v.Dec())
	case error:
		return quoteIfNeeded(v.Error())
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	case string:
		return quoteIfNeeded(v)
	case []byte:
		return quoteIfNeeded(fmt.Sprintf("%v", v))
	case bool:
		return strconv.FormatBool(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, uintptr:
		return groupDigits(fmt.Sprintf("%d", v))
	case float32, float64:
		return fmt.Sprintf("%v", v)
	default:
		return quoteIfNeeded(fmt.Sprintf("%+v", v))
	}
}

// quoteIfNeeded wraps s in double quotes (escaping the usual control
// characters) when it is empty or contains a space, tab, newline, double
// quote or '='; plain tokens pass
// through unquoted so simple key=value attrs stay readable.
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\n\"=") {
		return s
	}
	return strconv.Quote(s)
}

// groupDigits inserts a comma every three digits from the right, the way
// the terminal handler renders large counters and hashes' numeric forms
// so they're easier to eyeball.
func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var buf strings.Builder
	rem := n % 3
	if rem > 0 {
		buf.WriteString(s[:rem])
		if n > rem {
			buf.WriteByte(',')
		}
	}
	for i := rem; i < n; i += 3 {
		buf.WriteString(s[i : i+3])
		if i+3 < n {
			buf.WriteByte(',')
		}
	}
	out := buf.String()
	if neg {
		out = "-" + out
	}
	return out
}

func appendInt64(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		return appendUint64(dst, uint64(-n), false)
	}
	return appendUint64(dst, uint64(n), false)
}

func appendUint64(dst []byte, n uint64, _ bool) []byte {
	return append(dst, groupDigits(strconv.FormatUint(n, 10))...)
}

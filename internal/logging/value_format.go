package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Console lines carry wall-clock time only; a cmd360 run rarely spans midnight.
const consoleTimeLayout = "15:04:05.000"

func formatTimestamp(ts time.Time) string {
	return ts.Local().Format(consoleTimeLayout)
}

// attrString renders v without quoting, for header fields.
func attrString(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
	return v.String()
}

// formatValue renders v for the key=value tail, quoting strings that would
// otherwise be ambiguous.
func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindString, slog.KindAny:
		s := attrString(v)
		if s == "" || strings.ContainsAny(s, " \t\r\n=\"") {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}

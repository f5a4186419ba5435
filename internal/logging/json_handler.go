package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// newJSONHandler builds the machine-readable handler used for the log file
// when logging.format is "json". Timestamps are UTC, levels are lowercase,
// sources are trimmed to file:line and durations are written as whole
// milliseconds so log processors never parse Go duration strings.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: rewriteJSONAttr,
	})
}

func rewriteJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			return jsonTimestamp(attr)
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			return jsonSource(attr)
		}
	}
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.Int64Value(attr.Value.Duration().Milliseconds())
	}
	return attr
}

func jsonTimestamp(attr slog.Attr) slog.Attr {
	attr.Key = "ts"
	if attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
	}
	return attr
}

func jsonSource(attr slog.Attr) slog.Attr {
	src, ok := attr.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return attr
	}
	attr.Value = slog.StringValue(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
	return attr
}

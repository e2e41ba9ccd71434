package logger

import (
	"io"
	"log/slog"
	"time"
)

const textTimeLayout = "01/02/2006 15:04:05.000000"

// loggerFactory builds slog handlers for a configured output format
// ("text" or "json"). Kept as a struct (rather than free functions) so the
// default factory's format can be swapped out in tests without touching
// global log level state.
type loggerFactory struct {
	format string
}

var defaultLoggerFactory = &loggerFactory{format: "json"}

// createJsonOrTextHandler returns a handler writing to w, gated by
// programLevel, with every record's message prefixed by prefix. The
// "time" attribute is rewritten to "timestamp" (an object of
// seconds/nanos for JSON, a fixed-width string for text) and "level" is
// rewritten to "severity" using our custom level names, and "msg" is
// rewritten to "message". slog preserves time/level/msg ordering ahead of
// any later attrs, so no custom handler wrapping is needed to get
// "timestamp=... severity=... message=..." output.
func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, programLevel *slog.LevelVar, prefix string) slog.Handler {
	replace := func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			lvl, _ := a.Value.Any().(slog.Level)
			a.Key = "severity"
			a.Value = slog.StringValue(levelName(lvl))
		case slog.TimeKey:
			t, _ := a.Value.Any().(time.Time)
			a.Key = "timestamp"
			if f.format == "json" {
				a.Value = slog.GroupValue(
					slog.Int64("seconds", t.Unix()),
					slog.Int64("nanos", int64(t.Nanosecond())),
				)
			} else {
				a.Value = slog.StringValue(t.Format(textTimeLayout))
			}
		case slog.MessageKey:
			a.Key = "message"
			a.Value = slog.StringValue(prefix + a.Value.String())
		}
		return a
	}

	opts := &slog.HandlerOptions{Level: programLevel, ReplaceAttr: replace}

	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

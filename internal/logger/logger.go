package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how the package-level logging functions below
// write. The zero value logs at INFO severity, in JSON, to stderr.
type Config struct {
	// Format is "json" or "text".
	Format string

	// Severity is one of TRACE, DEBUG, INFO, WARNING, ERROR, OFF.
	Severity string

	// FilePath, if non-empty, routes output through a rotated file sink
	// (gopkg.in/natefinch/lumberjack.v2) instead of stderr.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu           sync.Mutex
	programLevel = new(slog.LevelVar)
	defaultLogger *slog.Logger
)

func init() {
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, programLevel, ""))
	setLoggingLevel(INFO, programLevel)
}

// Init (re)configures the package-level logger. It is safe to call again
// later (e.g. after config reload) since it only swaps the package-level
// logger pointer under a mutex.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	format := cfg.Format
	if format == "" {
		format = "json"
	}
	defaultLoggerFactory.format = format

	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 512),
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}

	lvl := cfg.Severity
	if lvl == "" {
		lvl = INFO
	}
	setLoggingLevel(lvl, programLevel)

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, programLevel, ""))
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func logf(ctx context.Context, level slog.Level, format string, v ...any) {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()

	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, v...))
}

// Tracef logs at TRACE severity, the most verbose level, reserved for the
// magazine fast path and lock-acquisition tracing.
func Tracef(format string, v ...any) { logf(context.Background(), LevelTrace, format, v...) }

// Debugf logs at DEBUG severity.
func Debugf(format string, v ...any) { logf(context.Background(), LevelDebug, format, v...) }

// Infof logs at INFO severity.
func Infof(format string, v ...any) { logf(context.Background(), LevelInfo, format, v...) }

// Warnf logs at WARNING severity.
func Warnf(format string, v ...any) { logf(context.Background(), LevelWarn, format, v...) }

// Errorf logs at ERROR severity.
func Errorf(format string, v ...any) { logf(context.Background(), LevelError, format, v...) }

// Fatalf logs at ERROR severity and then panics, for unrecoverable
// invariant violations (double free, corrupted allocation hash table,
// live allocations at cache_destroy, and so on). Panicking rather than
// os.Exit lets tests assert on the condition with recover(); nothing in
// this module recovers the panic, so outside tests it propagates and
// ends the program.
func Fatalf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	logf(context.Background(), LevelError, "%s", msg)
	panic(msg)
}

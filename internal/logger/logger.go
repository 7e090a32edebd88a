package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Log is the process-wide logger. Until Init runs it writes warnings and
// errors to stderr, which covers configuration problems found at startup.
var Log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

var (
	mu   sync.Mutex
	sink *os.File
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is treated as info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init configures Log with the given level and sink.
// The sink is "" (discard), "stderr", "stdout" or "file:<path>".
// The terminal UI owns stdout, so the default is to discard.
func Init(level, sinkSpec string) error {
	mu.Lock()
	defer mu.Unlock()

	var w io.Writer
	var f *os.File
	switch {
	case sinkSpec == "":
		w = io.Discard
	case sinkSpec == "stderr":
		w = os.Stderr
	case sinkSpec == "stdout":
		w = os.Stdout
	case strings.HasPrefix(sinkSpec, "file:"):
		path := strings.TrimPrefix(sinkSpec, "file:")
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		w = f
	default:
		return fmt.Errorf("unknown log sink %q", sinkSpec)
	}

	_ = closeSinkLocked()
	sink = f

	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	return nil
}

// SetOutput points Log at w. Tests use it to capture records.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	Log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Sync closes the file sink, if any.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	return closeSinkLocked()
}

func closeSinkLocked() error {
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return Log
}

// Debug logs with slog-style key/value pairs.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs with slog-style key/value pairs.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs with slog-style key/value pairs.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs with slog-style key/value pairs.
func Error(msg string, args ...any) { current().Error(msg, args...) }

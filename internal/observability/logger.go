package observability

import (
	"io"
	"log/slog"
	"strings"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// NewLogger builds the service logger on stdout and installs it as the slog
// default. format is "json" or "text"; level is one of debug, info, warn,
// error and falls back to info.
func NewLogger(level, format string) *slog.Logger {
	return sharedobs.NewLogger(level, format)
}

// NewConsoleLogger builds a logger for the command-line tools, which keep
// stdout free for their output and log to w instead.
func NewConsoleLogger(w io.Writer, level, format string) *slog.Logger {
	return newLogger(w, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

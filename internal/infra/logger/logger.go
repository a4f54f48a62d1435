// Package logger builds the process-wide slog.Logger from configuration.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"agentos/internal/infra/config"
)

// New creates a configured *slog.Logger. The returned closer releases the
// output file handle, if any; defer it at shutdown.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	writer, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}
	return slog.New(newHandler(writer, cfg.Format, parseLevel(cfg.Level))), closer, nil
}

// newHandler selects the output encoding. Anything but "json" renders as
// text, the format a REPL session reads.
func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel converts a config level string to slog.Level. Unknown values
// fall back to info.
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

// openOutput resolves the configured output target. stderr is the default
// so log lines never interleave with envelope output on stdout.
func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stderr", "":
		return os.Stderr, noop, nil
	case "stdout":
		return os.Stdout, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}

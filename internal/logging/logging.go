// Package logging provides structured logging setup using log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// DebugEnv enables debug logging when set to "1".
const DebugEnv = "NETCHOO_DEBUG"

// Level represents the logging verbosity level.
type Level int

const (
	// LevelInfo is the default logging level for normal operation.
	LevelInfo Level = iota
	// LevelDebug enables verbose debug output.
	LevelDebug
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the global logger.
type Options struct {
	Level Level
	// Format is FormatText (default) or FormatJSON.
	Format string
	// Output defaults to os.Stderr. Use io.Discard to silence logging.
	Output io.Writer
}

// NewLogger builds a logger from opts without installing it.
func NewLogger(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if opts.Level == LevelDebug {
		handlerOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// Setup initializes the global slog logger.
// Call this once at application startup.
func Setup(opts Options) {
	slog.SetDefault(NewLogger(opts))
}

// SetupFromEnv is Setup with debug forced on when NETCHOO_DEBUG=1.
func SetupFromEnv(opts Options) {
	if DebugFromEnv() {
		opts.Level = LevelDebug
	}
	Setup(opts)
}

// DebugFromEnv reports whether NETCHOO_DEBUG=1.
func DebugFromEnv() bool {
	return os.Getenv(DebugEnv) == "1"
}

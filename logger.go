package flagvault

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with vault-specific field helpers so log
// records carry consistent attribute names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler
// defaults to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithSlot tags the logger with a slot ID.
func (l *Logger) WithSlot(slot uint64) *Logger {
	return &Logger{Logger: l.Logger.With("slot", slot)}
}

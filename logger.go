package rpstage

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with stage-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithStage adds the stage name to the logger.
func (l *Logger) WithStage(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("stage", name),
	}
}

// WithSlot adds a device buffer slot field to the logger.
func (l *Logger) WithSlot(slot int) *Logger {
	return &Logger{
		Logger: l.Logger.With("slot", slot),
	}
}

// LogSend logs a buffer dispatch.
func (l *Logger) LogSend(ctx context.Context, slot, searches int) {
	l.DebugContext(ctx, "buffer sent",
		"slot", slot,
		"searches", searches,
	)
}

// LogReceive logs the completion of a buffer receive.
func (l *Logger) LogReceive(ctx context.Context, slot int, wait time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "buffer receive failed",
			"slot", slot,
			"wait", wait,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer received",
			"slot", slot,
			"wait", wait,
		)
	}
}

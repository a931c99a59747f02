package segstore

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with segstore-specific context. This provides
// structured logging with consistent field names across Open/Fetch/Save.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil, it
// uses a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that writes human-readable logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards all log output. It is the default.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// WithPath adds a file path field.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// LogOpen logs an Open call.
func (l *Logger) LogOpen(ctx context.Context, path string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed", "path", path, "error", err)
		return
	}
	l.DebugContext(ctx, "opened", "path", path, "entries", entries)
}

// LogFetch logs a Fetch call.
func (l *Logger) LogFetch(ctx context.Context, requested, resolved int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fetch failed", "requested", requested, "error", err)
		return
	}
	l.DebugContext(ctx, "fetch completed", "requested", requested, "resolved", resolved)
}

// LogLookup logs a look_for call.
func (l *Logger) LogLookup(ctx context.Context, addresses, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "lookup failed", "addresses", addresses, "error", err)
		return
	}
	l.DebugContext(ctx, "lookup completed", "addresses", addresses, "matches", matches)
}

// LogSave logs a Save call.
func (l *Logger) LogSave(ctx context.Context, path string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "save failed", "path", path, "error", err)
		return
	}
	l.InfoContext(ctx, "saved", "path", path, "entries", entries)
}

// LogClose logs a Close call.
func (l *Logger) LogClose(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "close failed", "path", path, "error", err)
		return
	}
	l.DebugContext(ctx, "closed", "path", path)
}

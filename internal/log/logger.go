package log

import (
	"context"
	"io"
	"log/slog"
)

// Pair of leveled and simple sinks for one scope.
//
// A Logger is safe for concurrent use.
type Logger struct {
	leveled *slog.Logger
	simple  *slog.Logger
}

// Creates a logger with both sinks configured from opts.
func New(opts Options) *Logger {
	return &Logger{
		leveled: slog.New(NewHandler(opts)),
		simple:  slog.New(NewSimpleHandler(opts)),
	}
}

// Creates a logger that drops every record.
func Discard() *Logger {
	opts := Options{Stream: io.Discard}
	return New(opts)
}

// Leveled sink as an [slog.Logger].
func (l *Logger) Slog() *slog.Logger {
	return l.leveled
}

// Returns a logger whose records carry args on both sinks.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		leveled: l.leveled.With(args...),
		simple:  l.simple.With(args...),
	}
}

// Writes a leveled record.
func (l *Logger) Log(level Level, msg string, args ...any) {
	l.leveled.Log(context.Background(), level.Slog(), msg, args...)
}

// Writes a record to the simple sink.
func (l *Logger) Print(level Level, msg string, args ...any) {
	l.simple.Log(context.Background(), level.Slog(), msg, args...)
}

func (l *Logger) Debug(msg string, args ...any)   { l.Log(LevelDebug, msg, args...) }
func (l *Logger) Message(msg string, args ...any) { l.Log(LevelMessage, msg, args...) }
func (l *Logger) Info(msg string, args ...any)    { l.Log(LevelInfo, msg, args...) }
func (l *Logger) Warning(msg string, args ...any) { l.Log(LevelWarning, msg, args...) }
func (l *Logger) Error(msg string, args ...any)   { l.Log(LevelError, msg, args...) }

// Writes a fatal record. It does not exit.
func (l *Logger) Fatal(msg string, args ...any) { l.Log(LevelFatal, msg, args...) }

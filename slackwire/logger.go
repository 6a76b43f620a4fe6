package slackwire

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
)

// Logger is a minimal logging interface accepted by the SDK.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// noopLogger discards all logs.
type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any) {}
func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Warn(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// NewSlogLogger adapts a *slog.Logger. A nil logger falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(msg string, fields map[string]any) { s.log(slog.LevelDebug, msg, fields) }
func (s slogLogger) Info(msg string, fields map[string]any)  { s.log(slog.LevelInfo, msg, fields) }
func (s slogLogger) Warn(msg string, fields map[string]any)  { s.log(slog.LevelWarn, msg, fields) }
func (s slogLogger) Error(msg string, fields map[string]any) { s.log(slog.LevelError, msg, fields) }

func (s slogLogger) log(level slog.Level, msg string, fields map[string]any) {
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	s.l.LogAttrs(context.Background(), level, msg, attrs...)
}

// NewZapLogger adapts a *zap.Logger. A nil logger discards everything.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l}
}

type zapLogger struct {
	l *zap.Logger
}

func (z zapLogger) Debug(msg string, fields map[string]any) { z.l.Debug(msg, zapFields(fields)...) }
func (z zapLogger) Info(msg string, fields map[string]any)  { z.l.Info(msg, zapFields(fields)...) }
func (z zapLogger) Warn(msg string, fields map[string]any)  { z.l.Warn(msg, zapFields(fields)...) }
func (z zapLogger) Error(msg string, fields map[string]any) { z.l.Error(msg, zapFields(fields)...) }

func zapFields(fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

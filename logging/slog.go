package logging

import (
	"context"
	"log/slog"
	"os"
)

// SlogLogger adapts a log/slog handler to the Logger interface so the
// library can be embedded in applications that already use slog.
type SlogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	exit   func(int)
}

// NewSlogLogger wraps h. The returned logger filters by its own level before
// handing records to h.
func NewSlogLogger(h slog.Handler) *SlogLogger {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelInfo)
	return &SlogLogger{
		logger: slog.New(&levelHandler{Handler: h, level: lv}),
		level:  lv,
		exit:   os.Exit,
	}
}

func (s *SlogLogger) args(fields []Fields) []any {
	var n int
	for _, f := range fields {
		n += len(f)
	}
	out := make([]any, 0, 2*n)
	for _, f := range fields {
		for k, v := range f {
			out = append(out, k, v)
		}
	}
	return out
}

func (s *SlogLogger) Debug(msg string, fields ...Fields) {
	s.logger.Debug(msg, s.args(fields)...)
}

func (s *SlogLogger) Info(msg string, fields ...Fields) {
	s.logger.Info(msg, s.args(fields)...)
}

func (s *SlogLogger) Warn(msg string, fields ...Fields) {
	s.logger.Warn(msg, s.args(fields)...)
}

func (s *SlogLogger) Error(err error, msg string, fields ...Fields) {
	s.logger.Error(msg, append(s.args(fields), "error", err)...)
}

func (s *SlogLogger) Fatal(err error, msg string, fields ...Fields) {
	s.logger.Error(msg, append(s.args(fields), "error", err, "fatal", true)...)
	s.exit(1)
}

func (s *SlogLogger) WithFields(fields Fields) Logger {
	return &SlogLogger{
		logger: s.logger.With(s.args([]Fields{fields})...),
		level:  s.level,
		exit:   s.exit,
	}
}

func (s *SlogLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := fieldsFromContext(ctx); ok {
		return s.WithFields(fields)
	}
	return s
}

func (s *SlogLogger) SetLevel(level Level) {
	s.level.Set(toSlogLevel(level))
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

type levelHandler struct {
	slog.Handler
	level *slog.LevelVar
}

func (h *levelHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.Handler.Enabled(ctx, l)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}

package logging

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// ANSI color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
)

// Level represents log levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string ("debug", "info", "warn", "error", "fatal")
// to a Level. The empty string yields InfoLevel.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Fields represents structured logging fields
type Fields map[string]any

// Logger defines the interface that the library expects for logging
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Fatal(err error, msg string, fields ...Fields)

	// WithFields returns a logger with preset fields
	WithFields(fields Fields) Logger

	// WithContext returns a logger carrying the fields stored in ctx
	WithContext(ctx context.Context) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)
}

type fieldsKey struct{}

// ContextWithFields returns a copy of ctx carrying fields that WithContext
// will attach to a logger.
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	merged := make(Fields, len(fields))
	if existing, ok := ctx.Value(fieldsKey{}).(Fields); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func fieldsFromContext(ctx context.Context) (Fields, bool) {
	if ctx == nil {
		return nil, false
	}
	fields, ok := ctx.Value(fieldsKey{}).(Fields)
	return fields, ok
}

type loggerHolder struct{ Logger }

var globalLogger atomic.Pointer[loggerHolder]

func init() {
	globalLogger.Store(&loggerHolder{NewDefaultLogger()})
}

// SetGlobalLogger sets the global logger instance. A nil logger disables
// logging.
func SetGlobalLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	globalLogger.Store(&loggerHolder{logger})
}

// GetGlobalLogger returns the current global logger
func GetGlobalLogger() Logger {
	return globalLogger.Load().Logger
}

// OrGlobal returns l, or the global logger when l is nil.
func OrGlobal(l Logger) Logger {
	if l == nil {
		return GetGlobalLogger()
	}
	return l
}

// Package-level logging functions that use the global logger
func Debug(msg string, fields ...Fields) {
	GetGlobalLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...Fields) {
	GetGlobalLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...Fields) {
	GetGlobalLogger().Warn(msg, fields...)
}

func Error(err error, msg string, fields ...Fields) {
	GetGlobalLogger().Error(err, msg, fields...)
}

func Fatal(err error, msg string, fields ...Fields) {
	GetGlobalLogger().Fatal(err, msg, fields...)
}

func WithFields(fields Fields) Logger {
	return GetGlobalLogger().WithFields(fields)
}

func WithContext(ctx context.Context) Logger {
	return GetGlobalLogger().WithContext(ctx)
}

func SetLevel(level Level) {
	GetGlobalLogger().SetLevel(level)
}

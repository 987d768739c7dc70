// Package logger provides module-scoped structured logging on top of log/slog.
//
// Usage:
//
//	log := logger.Global().Module("anonymize")
//	log.Info("pseudonyms generated", logger.Int("macs", n))
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel is a textual log level as used in configuration.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is a typed key/value pair attached to a log record.
type Field struct {
	Key   string
	Value any
}

// internKey deduplicates field keys; the same handful of keys is used for every record.
func internKey(key string) string {
	return unique.Make(key).Value()
}

var (
	errorKey  = internKey("error")
	moduleKey = internKey("module")
	runIDKey  = internKey("run_id")
)

// Logger is the logging interface used throughout the application.
type Logger interface {
	// Module returns a child logger whose module name is "<parent>.<name>".
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a logger that adds fields to every record.
	With(fields ...Field) Logger
	// WithContext attaches values such as the run id from ctx.
	WithContext(ctx context.Context) Logger

	Log(level LogLevel, msg string, fields ...Field)

	Flush() error
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an int field.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates an int64 field.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a float64 field.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a bool field.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field under the "error" key.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field rendered as a human readable string.
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Strings creates a string slice field.
func Strings(key string, value []string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with an arbitrary value.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}

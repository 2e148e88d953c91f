// Package logging provides the structured logger used across the adapter
// layer. The Logger interface keeps call sites independent of the backend;
// the default backend is zap.
package logging

import (
	"io"
	"time"
)

// Level represents the severity level of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of a log level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the interface for logging functionality.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a child logger that attaches fields to every entry.
	WithFields(fields ...Field) Logger

	// SetOutput redirects log output, primarily for tests.
	SetOutput(w io.Writer)
}

// Field represents a key-value pair in a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors for common types.

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Error(err error) Field { return Field{Key: "error", Value: err.Error()} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }

// nopLogger discards everything. Useful as a default for optional loggers.
type nopLogger struct{}

func (nopLogger) Debug(string, ...Field)       {}
func (nopLogger) Info(string, ...Field)        {}
func (nopLogger) Warn(string, ...Field)        {}
func (nopLogger) Error(string, ...Field)       {}
func (n nopLogger) WithFields(...Field) Logger { return n }
func (nopLogger) SetOutput(io.Writer)          {}

// NewNop returns a logger that discards all output.
func NewNop() Logger { return nopLogger{} }

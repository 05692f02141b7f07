// Package logging provides a small structured-logging abstraction so the
// rest of the application stays decoupled from the concrete log framework.
package logging

// Logger is the structured logging interface used across cgem.
type Logger interface {
	// Debug logs a debug-level message with optional fields.
	Debug(msg string, fields ...Field)

	// Info logs an info-level message with optional fields.
	Info(msg string, fields ...Field)

	// Warn logs a warning-level message with optional fields.
	Warn(msg string, fields ...Field)

	// Error logs an error-level message with optional fields.
	Error(msg string, fields ...Field)

	// WithError returns a new logger with an error field attached.
	WithError(err error) Logger

	// WithField returns a new logger with a single field attached.
	WithField(key string, value interface{}) Logger

	// WithFields returns a new logger with multiple fields attached.
	WithFields(fields ...Field) Logger
}

// Field is a key-value pair attached to a log message.
type Field struct {
	Key   string
	Value interface{}
}

var defaultLogger Logger = NewLogrusAdapter("info", "text")

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	return defaultLogger
}

// SetDefault replaces the process-wide default logger. Passing nil is a no-op.
func SetDefault(logger Logger) {
	if logger != nil {
		defaultLogger = logger
	}
}

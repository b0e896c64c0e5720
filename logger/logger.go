// Package logger defines the logging interface used across go-scan and a
// default slog-backed implementation.
//
// Every component (the soft network, the scan orchestrator, the daemon) logs
// through the Logger interface, so callers can plug in their own logging
// framework by implementing it.
//
// Log Levels:
//
//   - DebugLevel: verbose diagnostics, usually disabled in production.
//   - InfoLevel: the default priority; run lifecycle events log here.
//   - WarnLevel: conditions worth attention that do not stop a run.
//   - ErrorLevel: failures that abort a run or a subscription.
//   - FatalLevel: unrecoverable failures; logging at this level exits the
//     process.
package logger

// Level indicates the logging severity level.
type Level = int8

const (
	// DebugLevel logs are typically voluminous, and are usually disabled in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel
	// ErrorLevel logs are high-priority. If an application is running smoothly,
	// it shouldn't generate any error-level logs.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// Logger defines a common interface for structured, leveled logging with
// key-value pairs.
type Logger interface {
	// Debug logs a message at DebugLevel with the given key-value pairs.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel with the given key-value pairs.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel with the given key-value pairs.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel with the given key-value pairs.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel with the given key-value pairs.
	//
	// The logger then calls os.Exit(1), even if logging at FatalLevel is disabled.
	Fatal(msg string, keysAndValues ...any)
	// With creates a child logger with the given key-value pairs added to its
	// context. Key-values added to the child don't affect the parent, and vice versa.
	With(keyValues ...any) Logger
	// Level returns the minimum enabled level for this logger.
	Level() Level
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level Level)
}

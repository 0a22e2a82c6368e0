// Package logger is the logging seam of go-seriallink. The link engine,
// transports, the device emulator and linkctl log through the Logger
// interface; the default implementation is built on log/slog, with a
// console handler for development.
//
// Frame hex dumps are logged at DebugLevel, so production links normally
// run at InfoLevel or above.
package logger

import (
	"fmt"
	"strings"
)

// LogLevel indicates the logging severity level.
type LogLevel = int8

const (
	DebugLevel LogLevel = iota - 1 // frame dumps, resends
	InfoLevel                      // default
	WarnLevel                      // unacknowledged requests, lost transport
	ErrorLevel
	FatalLevel
)

// Logger is the structured logger used by every go-seriallink package.
//
// Records carry alternating key/value pairs, for example
// l.Warn("link: request not acknowledged", "deviceID", 4, "seqID", 7).
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at FatalLevel and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
	// With returns a child logger that adds keyValues to every record.
	// The child shares the level of its parent.
	With(keyValues ...any) Logger
	Level() LogLevel
	SetLevel(level LogLevel)
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
//
// An empty string maps to InfoLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
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
		return InfoLevel, fmt.Errorf("logger: unknown level %q", name)
	}
}

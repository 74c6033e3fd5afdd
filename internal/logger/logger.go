package logger

import (
	"strings"
	"sync"
)

// Log levels accepted in config.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call fixes the level;
// later calls return the same instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(strings.ToLower(strings.TrimSpace(level)))
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Components fall back to it
// when constructed with a nil logger.
func Nop() *Logger {
	return nopLogger
}

// OrNop returns l, or the no-op logger if l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return nopLogger
	}
	return l
}

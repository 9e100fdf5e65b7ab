// Package plog is a minimal leveled logger for vm and debugger trace
// output, generalized from the teacher's log.Fatalf CLI-boundary
// reporting into a reusable type library callers aren't forced through.
package plog

import (
	"fmt"
	"io"
	"log"
)

// Level is a logging verbosity threshold.
type Level int

const (
	// Silent disables all output. The zero value, so a zero-value
	// Logger (and a nil *Logger, whose methods check for nil) never
	// produces output by default.
	Silent Level = iota
	Error
	Info
	Debug
)

// Logger writes leveled messages to an underlying *log.Logger, dropping
// anything above its configured Level.
type Logger struct {
	level Level
	out   *log.Logger
}

// New creates a Logger that writes to w at the given level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{level: Silent}
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.out != nil && level <= l.level
}

// Errorf logs a message at Error level.
func (l *Logger) Errorf(format string, args ...any) {
	if l.enabled(Error) {
		l.out.Output(2, fmt.Sprintf("ERROR "+format, args...))
	}
}

// Infof logs a message at Info level.
func (l *Logger) Infof(format string, args ...any) {
	if l.enabled(Info) {
		l.out.Output(2, fmt.Sprintf("INFO "+format, args...))
	}
}

// Debugf logs a message at Debug level.
func (l *Logger) Debugf(format string, args ...any) {
	if l.enabled(Debug) {
		l.out.Output(2, fmt.Sprintf("DEBUG "+format, args...))
	}
}

// Package stmlog is the runtime's minimal logging facade: retry-count
// trace lines and unrecoverable allocation or slot-exhaustion failures.
//
// The retrieved corpus carries no third-party structured-logging
// dependency anywhere (no zap, no zerolog, no logrus) — every example
// repo that logs at all does so through the standard library's log
// package, so this package follows suit rather than introducing a
// dependency the ecosystem sample never reaches for.
package stmlog

import (
	"io"
	"log"
	"os"
)

// Logger is a *log.Logger wrapper scoped to one runtime instance, so that
// multiple stm.Runtime values in the same process (as in tests) don't
// interleave output confusingly.
type Logger struct {
	l *log.Logger
}

// New returns a Logger writing to os.Stderr with a "stm: " prefix.
func New() *Logger {
	return &Logger{l: log.New(os.Stderr, "stm: ", log.LstdFlags)}
}

// Discard returns a Logger that drops everything, for tests and for
// runtimes constructed with the WithLogging(true) option.
func Discard() *Logger {
	return &Logger{l: log.New(io.Discard, "", 0)}
}

// Tracef logs a low-frequency diagnostic line, such as a transaction that
// has retried an unusually large number of times.
func (lg *Logger) Tracef(format string, args ...any) {
	if lg == nil || lg.l == nil {
		return
	}
	lg.l.Printf(format, args...)
}

// Fatalf logs and then terminates the process. It is reserved for
// conditions the runtime cannot recover from, such as the descriptor pool
// or slab allocator being unable to satisfy a request at all.
func (lg *Logger) Fatalf(format string, args ...any) {
	if lg == nil || lg.l == nil {
		os.Exit(1)
	}
	lg.l.Fatalf(format, args...)
}

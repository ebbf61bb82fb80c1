package core

import (
	"log"
	"os"
)

// DefaultLogger returns the engine's default info log sink: one line per
// event on standard output, timestamped to microsecond precision. It is
// backed by a standard *log.Logger, which serializes its own writes, so the
// default is safe for concurrent use even though custom sinks need not be.
func DefaultLogger() Logger {
	l := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
	return func(format string, args ...any) {
		l.Printf(format, args...)
	}
}

// noopLogger discards everything.
func noopLogger(string, ...any) {}

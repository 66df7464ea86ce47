// Package logging defines the abstract logger collaborator the interaction
// engine emits diagnostics through, plus a standard-library-backed
// implementation.
package logging

import (
	"log"
	"os"
)

// Logger is the two-level collaborator interface the core logs through.
// Hosts may supply their own implementation (e.g. routing to a browser
// console); the core never logs directly to stdout/stderr.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// StdLogger backs Logger with the standard library's log.Logger.
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger returns a Logger that writes to stderr with a timestamp
// prefix, the teacher's own choice of logging tool.
func NewStdLogger() *StdLogger {
	return &StdLogger{l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (s *StdLogger) Info(msg string, args ...any) {
	s.l.Printf("INFO: "+msg, args...)
}

func (s *StdLogger) Error(msg string, args ...any) {
	s.l.Printf("ERROR: "+msg, args...)
}

// NopLogger discards everything. Useful in tests that don't want log noise.
type NopLogger struct{}

func (NopLogger) Info(msg string, args ...any)  {}
func (NopLogger) Error(msg string, args ...any) {}

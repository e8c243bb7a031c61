package stmlog

import "testing"

func TestTracefOnNilLoggerDoesNotPanic(t *testing.T) {
	var lg *Logger
	lg.Tracef("retry count %d", 3)
}

func TestNewAndDiscardConstructWithoutPanic(t *testing.T) {
	New().Tracef("hello %s", "world")
	Discard().Tracef("hello %s", "world")
}

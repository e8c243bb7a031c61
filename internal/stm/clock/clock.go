// Package clock implements the global monotonic commit clock shared by all
// transactions in a runtime.
//
// A Clock hands out two kinds of values: a read timestamp, sampled once at
// the start of a transaction (Now), and a write timestamp, minted exactly
// once per successful commit (Tick). Every Tick result is unique and greater
// than any value previously returned by Now or Tick on the same Clock.
package clock

import "sync/atomic"

// Clock is a process-wide (or test-scoped) 64-bit logical timestamp source.
//
// The zero value is ready to use, starting at 0. Callers needing an
// independent clock for testing construct one with New; production code
// normally shares the single Clock embedded in a runtime handle.
type Clock struct {
	c atomic.Uint64
}

// New returns a Clock starting at 0.
func New() *Clock {
	return &Clock{}
}

// Now returns the most recent value handed out by Tick, or 0 if Tick has
// never been called. It never exceeds the most recent Tick result.
func (c *Clock) Now() uint64 {
	return c.c.Load()
}

// Tick atomically advances the clock and returns the new value.
//
// Two concurrent calls to Tick never observe the same result: the returned
// values form a strictly increasing, globally unique sequence for the
// lifetime of the Clock. 64-bit wraparound is not handled; at one tick per
// nanosecond it would take over 500 years to overflow.
func (c *Clock) Tick() uint64 {
	return c.c.Add(1)
}

package testutil

import (
	"sync"
	"time"
)

// Epoch is the first timestamp handed out by a DeterministicClock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a wall clock for tests. Every call to Now returns
// the previous timestamp advanced by a fixed step, starting at Epoch, so
// receipt timestamps are reproducible across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	step  time.Duration
	calls int64
}

// NewDeterministicClock creates a clock that advances one second per call.
//
// The first call to Now() returns Epoch.
func NewDeterministicClock() *DeterministicClock {
	return NewSteppedClock(time.Second)
}

// NewSteppedClock creates a clock that advances by step per call.
// A zero step freezes the clock at Epoch.
func NewSteppedClock(step time.Duration) *DeterministicClock {
	return &DeterministicClock{step: step}
}

// Now returns the next timestamp. Matches the driver's WithNow signature.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many timestamps have been handed out.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

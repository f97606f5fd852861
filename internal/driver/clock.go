package driver

import "sync/atomic"

// Clock is the logical clock that orders receipts.
//
// The driver reads Peek under its commit mutex and only advances the clock
// once a receipt has been written, so the receipt log has no seq gaps.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, typically the store's
// last receipt seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Peek returns the seq Next would return, without advancing.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// AdvanceTo moves the clock forward to seq if it is behind. It never moves
// the clock back.
func (c *Clock) AdvanceTo(seq int64) {
	for {
		cur := c.seq.Load()
		if cur >= seq || c.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

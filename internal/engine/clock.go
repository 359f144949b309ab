package engine

import "sync/atomic"

// Clock is a monotonic logical clock for activation ordering.
//
// Activations are stamped with a strictly increasing seq number from this
// clock, and every conflict-resolution tie-break compares seq values.
// Wall-clock timestamps never participate in ordering - replaying the
// same query must select the same winners.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
// Each call returns a unique, increasing value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset restarts the clock at 0. Called once per query so repeated
// queries on the same engine instance produce identical seq values.
func (c *Clock) Reset() {
	c.seq.Store(0)
}

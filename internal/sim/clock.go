package sim

import "sync/atomic"

// Clock counts simulated clock edges.
//
// Edge numbers are strictly increasing and start at 1, so an edge number of 0
// always means "before the first edge".
type Clock struct {
	edges atomic.Uint64
}

// NewClock creates a clock that has seen no edges.
func NewClock() *Clock {
	return &Clock{}
}

// Next records one more edge and returns its number.
func (c *Clock) Next() uint64 {
	return c.edges.Add(1)
}

// Current returns the number of the most recent edge.
func (c *Clock) Current() uint64 {
	return c.edges.Load()
}

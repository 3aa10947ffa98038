package registry

import (
	"sync/atomic"
	"time"
)

// Clock supplies the created_at timestamp, in unix seconds.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() int64 {
	return time.Now().Unix()
}

// MonotonicClock wraps a source so readings never go backwards, even if the
// wall clock is stepped back.
//
// Thread-safety: safe for concurrent use (atomic operations).
type MonotonicClock struct {
	source Clock
	last   atomic.Int64
}

// NewMonotonicClock wraps source.
func NewMonotonicClock(source Clock) *MonotonicClock {
	return &MonotonicClock{source: source}
}

// Now returns max(previous reading, source reading).
func (c *MonotonicClock) Now() int64 {
	for {
		prev := c.last.Load()
		now := c.source.Now()
		if now < prev {
			return prev
		}
		if c.last.CompareAndSwap(prev, now) {
			return now
		}
	}
}

// ManualClock is a settable clock for tests and replays.
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock creates a clock reading start.
func NewManualClock(start int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

func (c *ManualClock) Now() int64 {
	return c.now.Load()
}

// Set moves the clock to t, forwards or backwards.
func (c *ManualClock) Set(t int64) {
	c.now.Store(t)
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d int64) {
	c.now.Add(d)
}

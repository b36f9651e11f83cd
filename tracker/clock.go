package tracker

import (
	"sync"
	"time"
)

// Clock is the time source for calibration windows and trail aging.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FrameClock is a manual clock for offline analysis and tests: time moves
// only when the caller advances it, usually by one hop per frame.
type FrameClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrameClock returns a clock reading start.
func NewFrameClock(start time.Time) *FrameClock {
	return &FrameClock{now: start}
}

func (c *FrameClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *FrameClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

package testutil

import (
	"sync"
	"time"
)

// Epoch is the default starting instant of a FakeClock.
var Epoch = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// FakeClock is a manually advanced wall clock for tests.
//
// Unlike a real clock, FakeClock only moves when told to. This lets tests
// step across activation-code expiry and heartbeat freshness boundaries
// exactly, without sleeping.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock creates a clock frozen at Epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: Epoch}
}

// NewFakeClockAt creates a clock frozen at t.
func NewFakeClockAt(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
// Negative durations are ignored: wall time in the registry never runs
// backwards.
func (c *FakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return c.now
}

// Reset returns the clock to Epoch.
//
// Used for test reuse.
func (c *FakeClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}

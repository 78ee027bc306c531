package clock

import "time"

// FakeClock is a Clock pinned to a fixed instant. Time only moves when the
// test calls Advance, so trial windows and billing periods stay deterministic.
type FakeClock struct {
	now time.Time
}

// NewFakeClock returns a clock pinned to t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

// Now implements Clock.
func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

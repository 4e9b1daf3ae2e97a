// Package clock provides the injected time source for the authorization
// kernel. Kernel code never reads the wall clock directly; everything that
// needs "now" takes a Clock, so expiry and identity checks are deterministic
// under test.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. The time.Time values it produces carry a
// monotonic reading, so comparisons are immune to wall-clock adjustment.
type Clock func() time.Time

// System returns a Clock backed by time.Now.
func System() Clock {
	return time.Now
}

// Fake is a manually-advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current instant. Use as a Clock via f.Now.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Package timeutil provides a testable abstraction over the time
// operations the serial layer performs, so boot delays and frame pacing
// can be tested without real waits.
package timeutil

import (
	"sync"
	"time"
)

// Clock abstracts the subset of the time package used by the controller.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)

	// After waits for the duration to elapse and then sends the current
	// time on the returned channel.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MockClock is a manually controlled clock for testing. Sleep returns
// immediately and records the requested duration; After waits until the
// clock is advanced past its deadline.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	waiters []*mockWaiter
}

type mockWaiter struct {
	ch       chan time.Time
	deadline time.Time
	fired    bool
}

// NewMockClock creates a MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep records the sleep duration but returns immediately.
func (c *MockClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
}

// Sleeps returns all recorded sleep durations.
func (c *MockClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// After returns a channel that fires once the clock is advanced to or
// past now+d.
func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := &mockWaiter{
		ch:       make(chan time.Time, 1),
		deadline: c.now.Add(d),
	}
	if !w.deadline.After(c.now) {
		w.fired = true
		w.ch <- c.now
	}
	c.waiters = append(c.waiters, w)
	return w.ch
}

// Waiters reports how many After channels have not yet fired. Tests use
// this to know a goroutine has reached its wait before advancing the
// clock.
func (c *MockClock) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.fired {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d and fires any expired waiters.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	for _, w := range c.waiters {
		if !w.fired && !w.deadline.After(c.now) {
			w.fired = true
			w.ch <- c.now
		}
	}
}

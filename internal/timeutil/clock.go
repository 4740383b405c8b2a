// Package timeutil abstracts timer creation so paced replays can be
// tested without sleeping.
package timeutil

import (
	"sync"
	"time"
)

// Clock creates timers. Production code uses SystemClock; tests drive a
// ManualClock forward explicitly.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer the replayer needs.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// SystemClock delegates to the time package.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

type systemTimer struct {
	t *time.Timer
}

func (t systemTimer) C() <-chan time.Time { return t.t.C }
func (t systemTimer) Stop() bool          { return t.t.Stop() }

// ManualClock is a Clock whose time only moves when Advance is called.
// Timers fire as Advance crosses their deadlines.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManualClock returns a manual clock starting at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTimer arms a timer d from the clock's current time. A non-positive
// duration fires immediately, matching time.NewTimer.
func (c *ManualClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, deadline: c.now.Add(d), ch: make(chan time.Time, 1)}
	if d <= 0 {
		t.fired = true
		t.ch <- c.now
		return t
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every armed timer whose
// deadline has been reached.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if t.fired {
			continue
		}
		if !t.deadline.After(c.now) {
			t.fired = true
			t.ch <- c.now
			continue
		}
		remaining = append(remaining, t)
	}
	c.timers = remaining
}

// Pending reports how many timers are armed and waiting.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired {
			n++
		}
	}
	return n
}

type manualTimer struct {
	clock    *ManualClock
	deadline time.Time
	ch       chan time.Time
	fired    bool
}

func (t *manualTimer) C() <-chan time.Time { return t.ch }

// Stop disarms the timer. It reports whether the timer was still pending,
// matching time.Timer.Stop.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired {
		return false
	}
	t.fired = true
	return true
}

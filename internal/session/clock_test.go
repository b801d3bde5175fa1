package session

import (
	"sort"
	"time"
)

// fakeClock runs timer callbacks synchronously from Advance, in deadline
// order, on the calling goroutine.
type fakeClock struct {
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	seq     int
	f       func()
	stopped bool
	fired   bool
	leaky   bool // Stop reports success but the callback still fires
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.seq++
	t := &fakeTimer{at: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	if !t.leaky {
		t.stopped = true
	}
	return true
}

// Advance moves time forward by d, firing every timer that comes due.
func (c *fakeClock) Advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		due := c.due(end)
		if due == nil {
			break
		}
		c.now = due.at
		due.fired = true
		due.f()
	}
	c.now = end
}

func (c *fakeClock) due(end time.Time) *fakeTimer {
	var live []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.at.After(end) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}

// live counts timers that can still fire.
func (c *fakeClock) live() int {
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

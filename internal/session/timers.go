package session

import "time"

// Clock supplies time and one-shot timers. AfterFunc callbacks must be
// delivered on the same goroutine that drives the controller.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// Stopper cancels a scheduled callback. *time.Timer satisfies it.
type Stopper interface {
	Stop() bool
}

// TimerKind identifies a timer slot. Each slot holds at most one timer.
type TimerKind int

const (
	// TimerInactivity is the forced-logout deadline.
	TimerInactivity TimerKind = iota
	// TimerTransient reverts a display-only state (card read, welcome,
	// unknown tag).
	TimerTransient
)

// Handle identifies one scheduled timer.
type Handle uint64

type pendingTimer struct {
	handle Handle
	stop   Stopper
}

// Timers is a cancelable timer set. Scheduling a kind replaces the timer of
// that kind, and a callback whose handle is no longer current is dropped, so
// a stop that races with delivery never fires into a later state.
type Timers struct {
	clock   Clock
	last    Handle
	pending map[TimerKind]pendingTimer
}

// NewTimers returns an empty set backed by clock.
func NewTimers(clock Clock) *Timers {
	return &Timers{clock: clock, pending: make(map[TimerKind]pendingTimer)}
}

// Schedule arranges for fn to run after d in slot kind, replacing whatever
// was pending there.
func (t *Timers) Schedule(kind TimerKind, d time.Duration, fn func()) Handle {
	t.Cancel(kind)
	t.last++
	h := t.last
	stop := t.clock.AfterFunc(d, func() { t.fire(kind, h, fn) })
	t.pending[kind] = pendingTimer{handle: h, stop: stop}
	return h
}

// Cancel stops the timer of kind, if any.
func (t *Timers) Cancel(kind TimerKind) {
	if p, ok := t.pending[kind]; ok {
		p.stop.Stop()
		delete(t.pending, kind)
	}
}

// CancelAll stops every outstanding timer.
func (t *Timers) CancelAll() {
	for kind, p := range t.pending {
		p.stop.Stop()
		delete(t.pending, kind)
	}
}

// Pending reports whether a timer of kind is outstanding.
func (t *Timers) Pending(kind TimerKind) bool {
	_, ok := t.pending[kind]
	return ok
}

// Len returns the number of outstanding timers.
func (t *Timers) Len() int { return len(t.pending) }

func (t *Timers) fire(kind TimerKind, h Handle, fn func()) {
	p, ok := t.pending[kind]
	if !ok || p.handle != h {
		return
	}
	delete(t.pending, kind)
	fn()
}

package tui

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flo-mic/replenish/internal/session"
)

// doer runs fn on the controller's goroutine. *kiosk.Loop is one.
type doer interface {
	Do(ctx context.Context, fn func(*session.Controller) error) error
}

// activity reports edits inside a form to the controller, so a user who is
// still filling in a form keeps the session alive. Touches are sent at most
// once per every.
type activity struct {
	ctx   context.Context
	loop  doer
	every time.Duration
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
	area string
}

func newActivity(ctx context.Context, loop doer, area string) *activity {
	return &activity{ctx: ctx, loop: loop, every: time.Second, now: time.Now, area: area}
}

// touch resets the inactivity deadline.
func (a *activity) touch() {
	a.mu.Lock()
	now := a.now()
	if !a.last.IsZero() && now.Sub(a.last) < a.every {
		a.mu.Unlock()
		return
	}
	a.last = now
	a.mu.Unlock()

	a.send(func(c *session.Controller) error { return c.Touch() })
}

// selectArea moves the operator draft to area when the selection changed.
// Any other selection only counts as activity.
func (a *activity) selectArea(area string) {
	a.mu.Lock()
	changed := area != "" && area != choiceBack && area != a.area
	if changed {
		a.area = area
		a.last = a.now()
	}
	a.mu.Unlock()

	if !changed {
		a.touch()
		return
	}
	a.send(func(c *session.Controller) error { return c.SelectArea(area) })
}

// validated wraps check so that every validation counts as activity.
func (a *activity) validated(check func(string) error) func(string) error {
	return func(s string) error {
		a.touch()
		return check(s)
	}
}

func (a *activity) send(fn func(*session.Controller) error) {
	if err := a.loop.Do(a.ctx, fn); err != nil && a.ctx.Err() == nil {
		slog.Debug("form activity not delivered", "err", err)
	}
}

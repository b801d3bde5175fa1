// Package kiosk runs the event loop that serializes tag reads, user actions
// and timer callbacks onto the session controller.
package kiosk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/flo-mic/replenish/internal/audit"
	"github.com/flo-mic/replenish/internal/config"
	"github.com/flo-mic/replenish/internal/identity"
	"github.com/flo-mic/replenish/internal/product"
	"github.com/flo-mic/replenish/internal/reader"
	"github.com/flo-mic/replenish/internal/session"
)

// ErrStopped is returned by Do once the loop has shut down.
var ErrStopped = errors.New("kiosk loop stopped")

// Options wires a loop.
type Options struct {
	Resolver *identity.Resolver
	Models   *product.Registry
	Recorder audit.Recorder
	Observer session.Observer
	Timings  config.Timings

	Tags     *reader.Handoff  // created if nil
	Ingester *reader.Ingester // nil runs without hardware
}

type action struct {
	fn    func(*session.Controller) error
	reply chan error
}

// Loop is the only goroutine that touches the controller.
type Loop struct {
	ctrl     *session.Controller
	tags     *reader.Handoff
	ingester *reader.Ingester

	actions chan action
	fired   chan func()
	stopped chan struct{}
	once    sync.Once
}

// New builds the controller and its loop. Call Run to start it.
func New(opts Options) *Loop {
	l := &Loop{
		tags:     opts.Tags,
		ingester: opts.Ingester,
		actions:  make(chan action),
		fired:    make(chan func(), 4),
		stopped:  make(chan struct{}),
	}
	if l.tags == nil {
		l.tags = reader.NewHandoff(16)
	}
	l.ctrl = session.New(session.Options{
		Resolver: opts.Resolver,
		Models:   opts.Models,
		Recorder: opts.Recorder,
		Clock:    &loopClock{fired: l.fired, stopped: l.stopped},
		Observer: opts.Observer,
		Timings:  opts.Timings,
	})
	return l
}

// Tags is the hand-off the loop consumes. Simulated reads are pushed here.
func (l *Loop) Tags() *reader.Handoff { return l.tags }

// Run drives the controller until ctx is cancelled, then shuts down in
// order: ingestion, timers, ledger flush, hardware handle.
func (l *Loop) Run(ctx context.Context) error {
	ingestCtx, stopIngest := context.WithCancel(context.Background())
	defer stopIngest()

	var wg sync.WaitGroup
	if l.ingester != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.ingester.Run(ingestCtx, l.tags)
		}()
	}
	slog.Info("kiosk loop started", "hardware", l.ingester != nil)

	for {
		select {
		case <-ctx.Done():
			stopIngest()
			wg.Wait()
			return l.shutdown()
		case tag := <-l.tags.C():
			l.ctrl.HandleTag(tag)
		case fn := <-l.fired:
			fn()
		case a := <-l.actions:
			a.reply <- a.fn(l.ctrl)
		}
	}
}

func (l *Loop) shutdown() error {
	l.once.Do(func() { close(l.stopped) })
	err := l.ctrl.Shutdown()
	if err != nil {
		slog.Error("flushing stock on shutdown", "err", err)
	}
	if l.ingester != nil {
		if cerr := l.ingester.Close(); cerr != nil {
			slog.Warn("closing tag reader", "err", cerr)
		}
	}
	slog.Info("kiosk loop stopped")
	return err
}

// Do runs fn on the loop goroutine and returns its error.
func (l *Loop) Do(ctx context.Context, fn func(*session.Controller) error) error {
	a := action{fn: fn, reply: make(chan error, 1)}
	select {
	case l.actions <- a:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-a.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loopClock schedules real timers whose callbacks are posted back to the
// loop instead of running on the timer goroutine.
type loopClock struct {
	fired   chan<- func()
	stopped <-chan struct{}
}

func (c *loopClock) Now() time.Time { return time.Now() }

func (c *loopClock) AfterFunc(d time.Duration, f func()) session.Stopper {
	return time.AfterFunc(d, func() {
		select {
		case c.fired <- f:
		case <-c.stopped:
		}
	})
}

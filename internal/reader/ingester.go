package reader

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Ingester polls the reader and forwards tags to a Handoff. It owns the
// port: only Run reads from it, and Close releases it.
type Ingester struct {
	cfg  Config
	open Opener

	mu     sync.Mutex
	reader TagReader
	closed bool

	nextAttempt time.Time
}

// NewIngester returns an ingester that opens its port with open.
func NewIngester(cfg Config, open Opener) *Ingester {
	return &Ingester{cfg: cfg.withDefaults(), open: open}
}

// Connected reports whether a port is currently open.
func (in *Ingester) Connected() bool { return in.current() != nil }

// Run polls until ctx is cancelled. A port that fails to open or breaks
// mid-stream is reopened with bounded retries; if those fail the ingester
// stays degraded and tries again after RetryMax.
func (in *Ingester) Run(ctx context.Context, out *Handoff) error {
	in.connect(ctx)

	ticker := time.NewTicker(in.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		r := in.current()
		if r == nil {
			if !time.Now().Before(in.nextAttempt) {
				in.connect(ctx)
			}
			continue
		}

		err := in.drain(ctx, r, out)
		if err == nil || ctx.Err() != nil {
			continue
		}
		slog.Warn("tag reader failed, reconnecting", "device", in.cfg.Device, "err", err)
		in.drop(r)
		in.connect(ctx)
	}
}

// drain forwards every tag available this poll. It returns only transport
// errors; bad lines are logged and skipped.
func (in *Ingester) drain(ctx context.Context, r TagReader, out *Handoff) error {
	for {
		tag, err := r.Read(ctx)
		switch {
		case errors.Is(err, ErrInvalidEncoding):
			slog.Warn("discarded unreadable tag line", "device", in.cfg.Device, "err", err)
			continue
		case err != nil:
			return err
		case tag == "":
			return nil
		}

		slog.Debug("tag read", "tag", tag)
		if err := out.Push(ctx, tag); err != nil {
			return nil
		}
	}
}

func (in *Ingester) connect(ctx context.Context) bool {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = in.cfg.RetryInitial
	b.MaxInterval = in.cfg.RetryMax

	r, err := backoff.Retry(ctx, func() (TagReader, error) {
		p, err := in.open(in.cfg)
		if err != nil {
			return nil, err
		}
		return NewLineReader(p, in.cfg.Device), nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(in.cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("tag reader open failed", "device", in.cfg.Device, "err", err, "retry_in", next)
		}),
	)
	if err != nil {
		in.nextAttempt = time.Now().Add(in.cfg.RetryMax)
		if ctx.Err() == nil {
			slog.Error("tag reader unavailable, running degraded",
				"device", in.cfg.Device, "tries", in.cfg.MaxTries, "err", err)
		}
		return false
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		r.Close()
		return false
	}
	in.reader = r
	slog.Info("tag reader connected", "device", in.cfg.Device, "baud", in.cfg.Baud)
	return true
}

func (in *Ingester) current() TagReader {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.reader
}

func (in *Ingester) drop(r TagReader) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.reader == r {
		in.reader = nil
	}
	if err := r.Close(); err != nil {
		slog.Debug("closing failed tag reader", "err", err)
	}
}

// Close releases the port. Call it after Run has returned.
func (in *Ingester) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.closed = true
	if in.reader == nil {
		return nil
	}
	err := in.reader.Close()
	in.reader = nil
	return err
}

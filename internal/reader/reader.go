// Package reader drains the serial RFID reader and hands tag strings to the
// kiosk event loop.
package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// ErrInvalidEncoding marks a line that is not valid UTF-8.
var ErrInvalidEncoding = errors.New("line is not valid UTF-8")

// HardwareError wraps a failure talking to the reader.
type HardwareError struct {
	Op     string // open, read, decode
	Device string
	Err    error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("reader %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }

// Port is an open byte stream from the reader. Read returns (0, nil) when
// the read timeout elapses without data.
type Port interface {
	io.Reader
	io.Closer
}

// Opener opens the reader's port.
type Opener func(cfg Config) (Port, error)

// TagReader yields one tag per call. Read returns ("", nil) when no complete
// tag arrived within one port read.
type TagReader interface {
	Read(ctx context.Context) (string, error)
	Close() error
}

// Config describes how to reach the reader.
type Config struct {
	Device       string
	Baud         int
	ReadTimeout  time.Duration
	PollInterval time.Duration

	// Reconnect policy. Zero values take the defaults below.
	MaxTries     uint
	RetryInitial time.Duration
	RetryMax     time.Duration
}

const (
	defaultMaxTries     = 3
	defaultRetryInitial = 500 * time.Millisecond
	defaultRetryMax     = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = 9600
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.MaxTries == 0 {
		c.MaxTries = defaultMaxTries
	}
	if c.RetryInitial == 0 {
		c.RetryInitial = defaultRetryInitial
	}
	if c.RetryMax == 0 {
		c.RetryMax = defaultRetryMax
	}
	return c
}

// OpenSerial opens cfg.Device as an 8N1 serial port.
func OpenSerial(cfg Config) (Port, error) {
	cfg = cfg.withDefaults()
	p, err := serial.Open(cfg.Device, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, &HardwareError{Op: "open", Device: cfg.Device, Err: err}
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		p.Close()
		return nil, &HardwareError{Op: "open", Device: cfg.Device, Err: err}
	}
	return p, nil
}

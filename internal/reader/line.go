package reader

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"
)

// LineReader splits a port's byte stream into newline-terminated tags.
type LineReader struct {
	port   Port
	device string
	buf    []byte
	chunk  []byte
}

var _ TagReader = (*LineReader)(nil)

// NewLineReader reads lines from port. device is used in error messages.
func NewLineReader(port Port, device string) *LineReader {
	return &LineReader{port: port, device: device, chunk: make([]byte, 256)}
}

// Read returns the next complete, trimmed, non-empty line. It issues at most
// one port read per call and returns ("", nil) if that read did not complete
// a line.
func (r *LineReader) Read(ctx context.Context) (string, error) {
	if line, ok, err := r.next(); ok || err != nil {
		return line, err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n, err := r.port.Read(r.chunk)
	if n > 0 {
		r.buf = append(r.buf, r.chunk[:n]...)
	}
	if err != nil {
		return "", &HardwareError{Op: "read", Device: r.device, Err: err}
	}
	line, _, err := r.next()
	return line, err
}

// next pops buffered lines until it finds a non-empty one.
func (r *LineReader) next() (string, bool, error) {
	for {
		i := bytes.IndexByte(r.buf, '\n')
		if i < 0 {
			return "", false, nil
		}
		raw := r.buf[:i]
		r.buf = r.buf[i+1:]

		if !utf8.Valid(raw) {
			return "", false, &HardwareError{Op: "decode", Device: r.device, Err: ErrInvalidEncoding}
		}
		if line := strings.TrimSpace(string(raw)); line != "" {
			return line, true, nil
		}
	}
}

// Close closes the underlying port.
func (r *LineReader) Close() error { return r.port.Close() }

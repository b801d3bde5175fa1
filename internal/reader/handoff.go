package reader

import "context"

// Handoff carries tag strings from producers (the ingester, simulated input)
// to the single consumer, the event loop.
type Handoff struct {
	ch chan string
}

// NewHandoff returns a hand-off buffering up to size tags.
func NewHandoff(size int) *Handoff {
	return &Handoff{ch: make(chan string, size)}
}

// Push queues tag, blocking while the buffer is full. Safe for concurrent use.
func (h *Handoff) Push(ctx context.Context, tag string) error {
	select {
	case h.ch <- tag:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the consumer side.
func (h *Handoff) C() <-chan string { return h.ch }

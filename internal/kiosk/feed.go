package kiosk

import "github.com/flo-mic/replenish/internal/session"

// Feed is an observer that keeps only the latest view. Notify never blocks,
// so a slow front end cannot stall the loop.
type Feed struct {
	ch chan session.View
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan session.View, 1)}
}

func (f *Feed) Notify(v session.View) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// C delivers the most recent view.
func (f *Feed) C() <-chan session.View { return f.ch }

package session

import (
	"github.com/flo-mic/replenish/internal/identity"
	"github.com/flo-mic/replenish/internal/ledger"
)

// State is a controller state.
type State int

const (
	StateIdle State = iota
	StateCardDetected
	StateRejected
	StateIdentityKnown
	StateModelSelection
	StateActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCardDetected:
		return "card_detected"
	case StateRejected:
		return "rejected"
	case StateIdentityKnown:
		return "identity_known"
	case StateModelSelection:
		return "model_selection"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// NoticeKind classifies the message attached to a view.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeCardRead
	NoticeWelcome
	NoticeUnknownTag
	NoticeTimedOut
	NoticeRegistered
	NoticeConfigSaved
	NoticeLoggedOut
)

// Notice is a transient user-facing message.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Draft is the in-progress operator form. It is discarded on teardown.
type Draft struct {
	Area     string
	Part     string
	Quantity int
}

// View is the snapshot handed to the presentation layer after each change.
type View struct {
	State    State
	Identity identity.Identity // zero when no session
	Model    string            // bound model code, empty before selection
	Models   []string          // selectable model codes
	Areas    []string          // bound catalog, sorted
	Parts    map[string]string // area → part of the bound catalog
	Draft    Draft
	Alerts   []ledger.Row // below-minimum areas of the bound model
	Stock    []ledger.Row // full table of the bound model
	Tag      string       // tag shown while rejected
	Notice   Notice
}

// HasSession reports whether a user is logged in.
func (v View) HasSession() bool { return v.Identity.Role != 0 }

// Observer receives views. Notify runs on the controller's goroutine and
// must not block.
type Observer interface {
	Notify(View)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(View)

func (f ObserverFunc) Notify(v View) { f(v) }

// Package session implements the kiosk state machine: tag identification,
// model selection, the operator and admin workflows, and inactivity logout.
//
// A Controller is not safe for concurrent use. All of its methods, and the
// timer callbacks it schedules through its Clock, must run on one goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flo-mic/replenish/internal/audit"
	"github.com/flo-mic/replenish/internal/config"
	"github.com/flo-mic/replenish/internal/identity"
	"github.com/flo-mic/replenish/internal/ledger"
	"github.com/flo-mic/replenish/internal/product"
)

var (
	// ErrNotAccepted rejects an action that is not valid in the current state.
	ErrNotAccepted = errors.New("action not accepted in current state")
	// ErrInvalidInput is the ledger's input error, shared so callers can match
	// one sentinel.
	ErrInvalidInput = ledger.ErrInvalidInput
)

// Session is the logged-in user.
type Session struct {
	ID           string
	Identity     identity.Identity
	Model        *product.Model
	LastActivity time.Time
}

// Options wires a controller.
type Options struct {
	Resolver *identity.Resolver
	Models   *product.Registry
	Recorder audit.Recorder // may be nil
	Clock    Clock
	Observer Observer // may be nil
	Timings  config.Timings
}

// Controller owns the current session, its draft and its timers.
type Controller struct {
	resolver *identity.Resolver
	models   *product.Registry
	recorder audit.Recorder
	clock    Clock
	observer Observer
	timings  config.Timings
	timers   *Timers

	state   State
	session *Session
	draft   Draft
	tag     string // last rejected tag
	notice  Notice
	closed  bool

	lastTag    string
	lastReadAt time.Time
	hasLast    bool
}

// New returns a controller in the idle state.
func New(opts Options) *Controller {
	return &Controller{
		resolver: opts.Resolver,
		models:   opts.Models,
		recorder: opts.Recorder,
		clock:    opts.Clock,
		observer: opts.Observer,
		timings:  opts.Timings,
		timers:   NewTimers(opts.Clock),
		state:    StateIdle,
	}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Session returns a copy of the current session, or nil.
func (c *Controller) Session() *Session {
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Timers exposes the timer set for inspection.
func (c *Controller) Timers() *Timers { return c.timers }

// HandleTag processes one raw read from the tag reader.
func (c *Controller) HandleTag(raw string) {
	tag := strings.TrimSpace(raw)
	if tag == "" || c.closed {
		return
	}
	if c.state != StateIdle {
		slog.Debug("tag read discarded, reader locked", "state", c.state)
		return
	}

	now := c.clock.Now()
	if c.hasLast && tag == c.lastTag && now.Sub(c.lastReadAt) < c.timings.Debounce {
		slog.Debug("duplicate tag read ignored", "tag", tag)
		return
	}
	c.lastTag, c.lastReadAt, c.hasLast = tag, now, true

	c.state = StateCardDetected
	c.notice = Notice{Kind: NoticeCardRead, Text: "Cartão lido"}
	c.timers.Schedule(TimerTransient, c.timings.CardDetected, func() { c.resolve(tag) })
	c.publish()
}

func (c *Controller) resolve(tag string) {
	id, ok := c.resolver.Resolve(tag)
	if !ok {
		slog.Info("unknown tag", "tag", tag)
		c.state = StateRejected
		c.tag = tag
		c.notice = Notice{Kind: NoticeUnknownTag, Text: "Cartão não cadastrado"}
		c.timers.Schedule(TimerTransient, c.timings.RejectDisplay, func() { c.toIdle(Notice{}) })
		c.publish()
		return
	}

	c.session = &Session{ID: uuid.NewString(), Identity: id}
	c.state = StateIdentityKnown
	c.notice = Notice{Kind: NoticeWelcome, Text: "Bem-vindo, " + id.Name}
	c.touch()
	slog.Info("session started", "session", c.session.ID, "user", id.Name, "role", id.Role)

	c.timers.Schedule(TimerTransient, c.timings.Welcome, func() {
		c.state = StateModelSelection
		c.notice = Notice{}
		c.publish()
	})
	c.publish()
}

// SelectModel binds a product model to the session.
func (c *Controller) SelectModel(code string) error {
	if err := c.require(StateModelSelection); err != nil {
		return err
	}
	c.touch()

	m, ok := c.models.Get(code)
	if !ok {
		return fmt.Errorf("%w: unknown model %q", ErrInvalidInput, code)
	}
	c.session.Model = m
	c.draft = Draft{Quantity: 1}
	c.state = StateActive
	c.notice = Notice{}
	slog.Info("model selected", "session", c.session.ID, "model", code)
	c.publish()
	return nil
}

// SelectArea sets the area of the operator form.
func (c *Controller) SelectArea(area string) error {
	if err := c.requireRole(identity.RoleOperator); err != nil {
		return err
	}
	c.touch()

	part, ok := c.session.Model.Catalog[area]
	if !ok {
		return fmt.Errorf("%w: unknown area %q", ErrInvalidInput, area)
	}
	c.draft.Area, c.draft.Part = area, part
	c.publish()
	return nil
}

// SetQuantity sets the quantity of the operator form.
func (c *Controller) SetQuantity(n int) error {
	if err := c.requireRole(identity.RoleOperator); err != nil {
		return err
	}
	c.touch()

	if n <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}
	c.draft.Quantity = n
	c.publish()
	return nil
}

// Register records the drafted replenishment and debits the ledger. On
// success the session ends.
func (c *Controller) Register(ctx context.Context) error {
	if err := c.requireRole(identity.RoleOperator); err != nil {
		return err
	}
	c.touch()

	d := c.draft
	if d.Area == "" {
		return fmt.Errorf("%w: select an area", ErrInvalidInput)
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	m := c.session.Model
	available, err := m.Ledger.Available(d.Area)
	if err != nil {
		return err
	}
	if d.Quantity > available {
		return &ledger.InsufficientStockError{Area: d.Area, Requested: d.Quantity, Available: available}
	}

	rec := audit.NewRecord(c.clock.Now(), c.session.Identity.Name, d.Area, d.Part, d.Quantity, m.Code)
	if c.recorder != nil {
		if err := c.recorder.Append(ctx, rec); err != nil {
			return fmt.Errorf("recording replenishment: %w", err)
		}
	}
	if err := m.Ledger.Debit(d.Area, d.Quantity); err != nil {
		slog.Error("replenishment logged but stock not debited",
			"record", rec.ID, "model", m.Code, "area", d.Area, "err", err)
		return err
	}

	slog.Info("replenishment registered",
		"session", c.session.ID, "record", rec.ID, "operator", rec.Operator,
		"model", m.Code, "area", d.Area, "quantity", d.Quantity)
	c.toIdle(Notice{
		Kind: NoticeRegistered,
		Text: fmt.Sprintf("Reposição registrada: %d %s removidos do estoque.", d.Quantity, d.Part),
	})
	return nil
}

// SetMinimum overwrites the stock and minimum of an area (admin only).
func (c *Controller) SetMinimum(area string, quantity, minimum int) error {
	if err := c.requireRole(identity.RoleAdmin); err != nil {
		return err
	}
	c.touch()

	m := c.session.Model
	if err := m.Ledger.SetMinimumConfig(area, quantity, minimum); err != nil {
		return err
	}
	slog.Info("stock configuration saved",
		"session", c.session.ID, "admin", c.session.Identity.Name,
		"model", m.Code, "area", area, "quantity", quantity, "minimum", minimum)
	c.notice = Notice{Kind: NoticeConfigSaved, Text: "Configuração salva com sucesso!"}
	c.publish()
	return nil
}

// Cancel leaves model selection or the active form and returns to idle.
func (c *Controller) Cancel() error {
	if err := c.require(StateModelSelection, StateActive); err != nil {
		return err
	}
	slog.Info("session cancelled", "session", c.session.ID)
	c.toIdle(Notice{})
	return nil
}

// Logout ends the session from any logged-in state.
func (c *Controller) Logout() error {
	if err := c.require(StateIdentityKnown, StateModelSelection, StateActive); err != nil {
		return err
	}
	slog.Info("logout", "session", c.session.ID)
	c.toIdle(Notice{Kind: NoticeLoggedOut, Text: "Sessão encerrada."})
	return nil
}

// Touch records user activity without changing state.
func (c *Controller) Touch() error {
	if c.closed || c.session == nil {
		return ErrNotAccepted
	}
	c.touch()
	return nil
}

// View returns the current snapshot.
func (c *Controller) View() View {
	v := View{
		State:  c.state,
		Models: c.models.Codes(),
		Draft:  c.draft,
		Notice: c.notice,
	}
	if c.state == StateRejected {
		v.Tag = c.tag
	}
	if c.session == nil {
		return v
	}
	v.Identity = c.session.Identity
	if m := c.session.Model; m != nil {
		v.Model = m.Code
		v.Areas = m.Catalog.Areas()
		v.Parts = maps.Clone(map[string]string(m.Catalog))
		v.Alerts = m.Ledger.BelowMinimum()
		v.Stock = m.Ledger.Entries()
	}
	return v
}

// Shutdown cancels all timers, ends any session and flushes every ledger.
// The controller accepts no input afterwards.
func (c *Controller) Shutdown() error {
	c.closed = true
	c.timers.CancelAll()
	c.session = nil
	c.draft = Draft{}
	c.state = StateIdle
	return c.models.FlushAll()
}

// touch moves the inactivity deadline to now + timeout while a session
// exists.
func (c *Controller) touch() {
	if c.session == nil {
		c.timers.Cancel(TimerInactivity)
		return
	}
	c.session.LastActivity = c.clock.Now()
	c.timers.Schedule(TimerInactivity, c.timings.Inactivity, c.expire)
}

func (c *Controller) expire() {
	if c.session == nil {
		return
	}
	slog.Info("session expired by inactivity",
		"session", c.session.ID, "user", c.session.Identity.Name, "idle", c.timings.Inactivity)
	c.toIdle(Notice{Kind: NoticeTimedOut, Text: "Sessão encerrada por inatividade."})
}

// toIdle tears the session down. Every pending timer is cancelled first.
func (c *Controller) toIdle(n Notice) {
	c.timers.CancelAll()
	c.session = nil
	c.draft = Draft{}
	c.tag = ""
	c.state = StateIdle
	c.notice = n
	c.publish()
}

func (c *Controller) require(states ...State) error {
	if c.closed {
		return ErrNotAccepted
	}
	for _, s := range states {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotAccepted, c.state)
}

func (c *Controller) requireRole(role identity.Role) error {
	if err := c.require(StateActive); err != nil {
		return err
	}
	if c.session.Identity.Role != role {
		return fmt.Errorf("%w: requires %s", ErrNotAccepted, role)
	}
	return nil
}

func (c *Controller) publish() {
	if c.observer != nil {
		c.observer.Notify(c.View())
	}
}

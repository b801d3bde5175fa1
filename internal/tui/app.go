// Package tui is the terminal front end of the kiosk. It renders controller
// views as huh forms and sends every user action through the event loop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/huh"

	"github.com/flo-mic/replenish/internal/identity"
	"github.com/flo-mic/replenish/internal/kiosk"
	"github.com/flo-mic/replenish/internal/session"
)

const (
	choiceLogout = "\x00logout"
	choiceBack   = "\x00back"
	choiceQuit   = "\x00quit"
	choiceSet    = "\x00set"
)

var errQuit = errors.New("quit")

// SimTag is a tag offered by the simulation selector.
type SimTag struct {
	Label string
	Tag   string
}

// SimTags builds the simulation choices from the allow-lists, plus one tag
// that is on neither.
func SimTags(admins, operators map[string]string) []SimTag {
	var out []SimTag
	add := func(table map[string]string, role identity.Role) {
		tags := make([]string, 0, len(table))
		for tag := range table {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		for _, tag := range tags {
			out = append(out, SimTag{Label: fmt.Sprintf("%s (%s)", table[tag], role), Tag: tag})
		}
	}
	add(operators, identity.RoleOperator)
	add(admins, identity.RoleAdmin)
	return append(out, SimTag{Label: "Cartão desconhecido", Tag: "00000000"})
}

// Options configures an App.
type Options struct {
	Title    string
	Simulate []SimTag // when set, the idle screen offers simulated reads
	Out      io.Writer
}

// App shows one screen at a time. A view that changes the screen key
// cancels the screen on display.
type App struct {
	loop *kiosk.Loop
	feed *kiosk.Feed
	opts Options

	mu     sync.Mutex
	latest session.View
	shown  string
	cancel context.CancelFunc
	flash  string
}

func New(loop *kiosk.Loop, feed *kiosk.Feed, opts Options) *App {
	if opts.Title == "" {
		opts.Title = "Reposição"
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &App{loop: loop, feed: feed, opts: opts}
}

// Run shows screens until ctx is cancelled or the user quits from idle.
func (a *App) Run(ctx context.Context) error {
	if err := a.refresh(ctx); err != nil {
		return err
	}
	go a.follow(ctx)

	for ctx.Err() == nil {
		a.mu.Lock()
		v := a.latest
		screenCtx, cancel := context.WithCancel(ctx)
		a.shown = screenKey(v)
		a.cancel = cancel
		a.mu.Unlock()

		err := a.show(screenCtx, v)
		superseded := screenCtx.Err() != nil
		cancel()

		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil && !superseded:
			a.flash = errorText(err)
		}
		if rerr := a.refresh(ctx); rerr != nil {
			if errors.Is(rerr, kiosk.ErrStopped) || ctx.Err() != nil {
				return nil
			}
			return rerr
		}
	}
	return nil
}

// follow tracks the feed and cancels the current screen when it goes stale.
func (a *App) follow(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-a.feed.C():
			a.mu.Lock()
			a.latest = v
			if screenKey(v) != a.shown && a.cancel != nil {
				a.cancel()
			}
			a.mu.Unlock()
		}
	}
}

func (a *App) refresh(ctx context.Context) error {
	var v session.View
	err := a.loop.Do(ctx, func(c *session.Controller) error {
		v = c.View()
		return nil
	})
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.latest = v
	a.mu.Unlock()
	return nil
}

func (a *App) do(ctx context.Context, fn func(*session.Controller) error) error {
	return a.loop.Do(ctx, fn)
}

func (a *App) show(ctx context.Context, v session.View) error {
	switch v.State {
	case session.StateIdle:
		return a.idle(ctx, v)
	case session.StateModelSelection:
		return a.selectModel(ctx, v)
	case session.StateActive:
		if v.Identity.Role == identity.RoleAdmin {
			return a.admin(ctx, v)
		}
		return a.operator(ctx, v)
	default:
		// Display-only states revert on their own timer.
		fmt.Fprintf(a.opts.Out, "[%s] %s\n", a.opts.Title, transientText(v))
		<-ctx.Done()
		return nil
	}
}

func transientText(v session.View) string {
	if v.State == session.StateRejected {
		return fmt.Sprintf("%s: %s", v.Notice.Text, v.Tag)
	}
	return v.Notice.Text
}

func (a *App) takeFlash(v session.View) string {
	msg := a.flash
	a.flash = ""
	if v.Notice.Text != "" {
		if msg != "" {
			msg += "\n"
		}
		msg += v.Notice.Text
	}
	return msg
}

func (a *App) idle(ctx context.Context, v session.View) error {
	msg := a.takeFlash(v)
	if len(a.opts.Simulate) == 0 {
		if msg != "" {
			fmt.Fprintf(a.opts.Out, "[%s] %s\n", a.opts.Title, msg)
		}
		fmt.Fprintf(a.opts.Out, "[%s] Aproxime o cartão do leitor.\n", a.opts.Title)
		<-ctx.Done()
		return nil
	}

	opts := make([]huh.Option[string], 0, len(a.opts.Simulate)+1)
	for _, s := range a.opts.Simulate {
		opts = append(opts, huh.NewOption(s.Label, s.Tag))
	}
	opts = append(opts, huh.NewOption("Sair", choiceQuit))

	var tag string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(a.opts.Title + " - aguardando cartão").
			Description(join("Simulação: escolha um cartão.", msg)).
			Options(opts...).
			Value(&tag),
	)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) || tag == choiceQuit {
		return errQuit
	}
	if err != nil {
		return err
	}
	return a.loop.Tags().Push(ctx, tag)
}

func (a *App) selectModel(ctx context.Context, v session.View) error {
	opts := make([]huh.Option[string], 0, len(v.Models)+1)
	for _, code := range v.Models {
		opts = append(opts, huh.NewOption("Modelo "+code, code))
	}
	opts = append(opts, huh.NewOption("Sair", choiceLogout))

	var code string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Olá, %s (%s)", v.Identity.Name, v.Identity.Role)).
			Description(join("Selecione o modelo.", a.takeFlash(v))).
			Options(opts...).
			Value(&code),
	)).RunWithContext(ctx)
	if err != nil {
		return a.aborted(ctx, err)
	}
	if code == choiceLogout {
		return a.do(ctx, func(c *session.Controller) error { return c.Logout() })
	}
	return a.do(ctx, func(c *session.Controller) error { return c.SelectModel(code) })
}

func (a *App) operator(ctx context.Context, v session.View) error {
	area := v.Draft.Area
	if area == "" && len(v.Areas) > 0 {
		area = v.Areas[0]
	}
	qty := "1"
	if v.Draft.Quantity > 0 {
		qty = fmt.Sprint(v.Draft.Quantity)
	}
	var confirm bool

	act := newActivity(ctx, a.loop, v.Draft.Area)
	desc := join(alertText(v.Alerts), a.takeFlash(v))
	areas := append(areaOptions(v.Areas, v.Parts, v.Stock), huh.NewOption("Voltar", choiceBack))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Modelo %s - %s", v.Model, v.Identity.Name)).
				DescriptionFunc(func() string {
					act.selectArea(area)
					return desc
				}, &area).
				Options(areas...).
				Value(&area).
				Validate(func(s string) error {
					act.selectArea(s)
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Quantidade").
				DescriptionFunc(func() string {
					act.touch()
					return ""
				}, &qty).
				Value(&qty).
				Validate(act.validated(validatePositive)),
			huh.NewConfirm().
				Title("Registrar reposição?").
				Affirmative("Registrar").
				Negative("Cancelar").
				Value(&confirm),
		).WithHideFunc(func() bool { return area == choiceBack }),
	).RunWithContext(ctx)
	if err != nil {
		return a.aborted(ctx, err)
	}
	if area == choiceBack || !confirm {
		return a.do(ctx, func(c *session.Controller) error { return c.Cancel() })
	}

	n, err := parsePositive(qty)
	if err != nil {
		return err
	}
	return a.do(ctx, func(c *session.Controller) error {
		if err := c.SelectArea(area); err != nil {
			return err
		}
		if err := c.SetQuantity(n); err != nil {
			return err
		}
		return c.Register(ctx)
	})
}

func (a *App) admin(ctx context.Context, v session.View) error {
	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewNote().
			Title(fmt.Sprintf("Estoque - modelo %s", v.Model)).
			Description(join(stockTable(v.Stock), a.takeFlash(v))),
		huh.NewSelect[string]().
			Title("Ação").
			Options(
				huh.NewOption("Definir estoque e mínimo", choiceSet),
				huh.NewOption("Voltar", choiceBack),
				huh.NewOption("Sair", choiceLogout),
			).
			Value(&choice),
	)).RunWithContext(ctx)
	if err != nil {
		return a.aborted(ctx, err)
	}

	switch choice {
	case choiceBack:
		return a.do(ctx, func(c *session.Controller) error { return c.Cancel() })
	case choiceLogout:
		return a.do(ctx, func(c *session.Controller) error { return c.Logout() })
	}
	return a.setMinimum(ctx, v)
}

func (a *App) setMinimum(ctx context.Context, v session.View) error {
	area := ""
	if len(v.Areas) > 0 {
		area = v.Areas[0]
	}
	var qty, minimum string

	act := newActivity(ctx, a.loop, "")
	touched := func() string {
		act.touch()
		return ""
	}
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Área").
			DescriptionFunc(touched, &area).
			Options(areaOptions(v.Areas, v.Parts, v.Stock)...).
			Value(&area),
		huh.NewInput().
			Title("Quantidade em estoque").
			DescriptionFunc(touched, &qty).
			Value(&qty).
			Validate(act.validated(validateNonNegative)),
		huh.NewInput().
			Title("Estoque mínimo").
			DescriptionFunc(touched, &minimum).
			Value(&minimum).
			Validate(act.validated(validateNonNegative)),
	)).RunWithContext(ctx)
	if err != nil {
		return a.aborted(ctx, err)
	}

	q, err := parseNonNegative(qty)
	if err != nil {
		return err
	}
	m, err := parseNonNegative(minimum)
	if err != nil {
		return err
	}
	return a.do(ctx, func(c *session.Controller) error { return c.SetMinimum(area, q, m) })
}

// aborted maps a form error: ctrl-c logs the user out, a superseded screen
// is not an error.
func (a *App) aborted(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return a.do(ctx, func(c *session.Controller) error { return c.Logout() })
	}
	return err
}

func join(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += p
	}
	return out
}

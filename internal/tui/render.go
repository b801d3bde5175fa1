package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"

	"github.com/flo-mic/replenish/internal/ledger"
	"github.com/flo-mic/replenish/internal/session"
)

// screenKey identifies what is on display. A view with a different key
// replaces the current screen.
func screenKey(v session.View) string {
	return fmt.Sprintf("%s|%s|%s|%d", v.State, v.Identity.Name, v.Model, v.Notice.Kind)
}

// areaOptions labels each area with its part and current stock, in catalog
// order. Areas missing from stock are labelled with the part only.
func areaOptions(areas []string, parts map[string]string, stock []ledger.Row) []huh.Option[string] {
	levels := make(map[string]ledger.Entry, len(stock))
	for _, r := range stock {
		levels[r.Area] = r.Entry
	}
	opts := make([]huh.Option[string], 0, len(areas))
	for _, a := range areas {
		label := fmt.Sprintf("%s - %s", a, parts[a])
		if e, ok := levels[a]; ok {
			label += fmt.Sprintf(" | Estoque: %d | Mínimo: %d", e.Quantity, e.Minimum)
		}
		opts = append(opts, huh.NewOption(label, a))
	}
	return opts
}

// stockTable renders the admin table.
func stockTable(rows []ledger.Row) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ÁREA\tPEÇA\tQTD\tMÍN\t")
	for _, r := range rows {
		mark := ""
		if r.BelowMinimum() {
			mark = "!"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.Area, r.Part, r.Quantity, r.Minimum, mark)
	}
	w.Flush()
	return b.String()
}

// alertText lists the below-minimum areas, or "" when there are none.
func alertText(rows []ledger.Row) string {
	if len(rows) == 0 {
		return ""
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "Estoque abaixo do mínimo:")
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("  %s %s: %d (mín %d)", r.Area, r.Part, r.Quantity, r.Minimum))
	}
	return strings.Join(lines, "\n")
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("quantidade deve ser um número inteiro maior que zero")
	}
	return n, nil
}

func parseNonNegative(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("valor deve ser um número inteiro não negativo")
	}
	return n, nil
}

func validatePositive(s string) error {
	_, err := parsePositive(s)
	return err
}

func validateNonNegative(s string) error {
	_, err := parseNonNegative(s)
	return err
}

// errorText turns an action error into the message shown on the next screen.
func errorText(err error) string {
	var short *ledger.InsufficientStockError
	var persist *ledger.PersistenceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &short):
		return fmt.Sprintf("Estoque insuficiente! Disponível: %d", short.Available)
	case errors.As(err, &persist):
		return "Falha ao salvar o estoque. Tente novamente."
	case errors.Is(err, ledger.ErrInvalidInput):
		return "Dados inválidos: " + err.Error()
	case errors.Is(err, session.ErrNotAccepted):
		return "Ação indisponível neste momento."
	default:
		return "Erro: " + err.Error()
	}
}

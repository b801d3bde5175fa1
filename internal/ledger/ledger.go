// Package ledger keeps the per-model stock table: area code → part, quantity
// and minimum. Quantities never go negative, and every mutation is persisted
// before it becomes visible in memory.
package ledger

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
)

// Entry is the stock of one area.
type Entry struct {
	Part     string
	Quantity int
	Minimum  int
}

// BelowMinimum reports whether the area needs replenishing.
func (e Entry) BelowMinimum() bool {
	return e.Quantity <= e.Minimum
}

// Row is an Entry together with its area code.
type Row struct {
	Area string
	Entry
}

// Ledger is the stock table of a single product model, backed by one file.
type Ledger struct {
	mu      sync.Mutex
	model   string
	path    string
	catalog map[string]string // area → part
	entries map[string]Entry
}

// Open loads the ledger for model from path. defaults is the built-in table;
// its areas and part names also make up the model's catalog. A missing file
// yields the defaults; catalog areas missing from the file are filled from
// them, and stored areas outside the catalog are dropped. A file that exists
// but cannot be parsed is an error.
func Open(model, path string, defaults map[string]Entry) (*Ledger, error) {
	if len(defaults) == 0 {
		return nil, fmt.Errorf("model %s: default stock table is required", model)
	}

	l := &Ledger{
		model:   model,
		path:    path,
		catalog: make(map[string]string, len(defaults)),
		entries: make(map[string]Entry, len(defaults)),
	}
	for area, e := range defaults {
		l.catalog[area] = e.Part
	}

	stored, found, err := loadTable(path)
	if err != nil {
		return nil, fmt.Errorf("loading stock for model %s: %w", model, err)
	}
	if found {
		for area, e := range stored {
			part, ok := l.catalog[area]
			if !ok {
				slog.Warn("dropping stock for area outside catalog", "model", model, "area", area, "quantity", e.Quantity)
				continue
			}
			if e.Part == "" {
				e.Part = part
			}
			l.entries[area] = e
		}
	}
	for area, e := range defaults {
		if _, ok := l.entries[area]; !ok {
			l.entries[area] = e
		}
	}
	return l, nil
}

// Model returns the product model code this ledger belongs to.
func (l *Ledger) Model() string { return l.model }

// Path returns the backing file.
func (l *Ledger) Path() string { return l.path }

// Part returns the catalog part name for area.
func (l *Ledger) Part(area string) (string, bool) {
	part, ok := l.catalog[area]
	return part, ok
}

// Areas returns the catalog area codes in order.
func (l *Ledger) Areas() []string {
	areas := make([]string, 0, len(l.catalog))
	for area := range l.catalog {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	return areas
}

// Entry returns the current stock of area.
func (l *Ledger) Entry(area string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[area]
	return e, ok
}

// Available returns the quantity on hand for area.
func (l *Ledger) Available(area string) (int, error) {
	e, ok := l.Entry(area)
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownArea, area)
	}
	return e.Quantity, nil
}

// Debit removes qty units from area. It fails with *InsufficientStockError if
// qty exceeds the quantity on hand, and with *PersistenceError if the new
// state could not be written; in both cases nothing changes.
func (l *Ledger) Debit(area string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidInput, qty)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[area]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownArea, area)
	}
	if qty > e.Quantity {
		return &InsufficientStockError{Area: area, Requested: qty, Available: e.Quantity}
	}
	e.Quantity -= qty
	return l.commit(area, e)
}

// SetMinimumConfig overwrites both the quantity and the minimum of a catalog
// area.
func (l *Ledger) SetMinimumConfig(area string, quantity, minimum int) error {
	if quantity < 0 || minimum < 0 {
		return fmt.Errorf("%w: quantity and minimum must not be negative", ErrInvalidInput)
	}
	part, ok := l.catalog[area]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownArea, area)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commit(area, Entry{Part: part, Quantity: quantity, Minimum: minimum})
}

// BelowMinimum lists the areas with quantity <= minimum, sorted by area.
func (l *Ledger) BelowMinimum() []Row {
	var rows []Row
	for _, r := range l.Entries() {
		if r.BelowMinimum() {
			rows = append(rows, r)
		}
	}
	return rows
}

// Entries returns the whole table sorted by area.
func (l *Ledger) Entries() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows := make([]Row, 0, len(l.entries))
	for area, e := range l.entries {
		rows = append(rows, Row{Area: area, Entry: e})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Area < rows[j].Area })
	return rows
}

// Flush writes the current table to disk.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := writeTable(l.path, l.entries); err != nil {
		return &PersistenceError{Model: l.model, Path: l.path, Err: err}
	}
	return nil
}

// commit persists the table with area set to e and only then swaps it in.
// Callers hold l.mu.
func (l *Ledger) commit(area string, e Entry) error {
	next := maps.Clone(l.entries)
	next[area] = e
	if err := writeTable(l.path, next); err != nil {
		return &PersistenceError{Model: l.model, Path: l.path, Err: err}
	}
	l.entries = next
	return nil
}

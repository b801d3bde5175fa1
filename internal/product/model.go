// Package product holds the product model variants. Each model carries its
// own area catalog and stock ledger, so nothing is shared between models.
package product

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/flo-mic/replenish/internal/config"
	"github.com/flo-mic/replenish/internal/ledger"
)

// Model is one product model variant.
type Model struct {
	Code    string
	Catalog Catalog
	Ledger  *ledger.Ledger
}

// Catalog maps area codes to part names.
type Catalog map[string]string

// Areas returns the area codes in order.
func (c Catalog) Areas() []string {
	areas := make([]string, 0, len(c))
	for a := range c {
		areas = append(areas, a)
	}
	sort.Strings(areas)
	return areas
}

// Registry is the ordered set of models known to the kiosk.
type Registry struct {
	models []*Model
}

// NewRegistry wraps already opened models, keeping their order.
func NewRegistry(models ...*Model) *Registry {
	return &Registry{models: models}
}

// LedgerPath is where the stock file of model code lives under dataDir.
func LedgerPath(dataDir, code string) string {
	return filepath.Join(dataDir, fmt.Sprintf("stock_%s.json", code))
}

// Load opens a ledger for every configured model.
func Load(cfg *config.Config) (*Registry, error) {
	r := &Registry{}
	for _, mc := range cfg.Models {
		catalog := make(Catalog, len(mc.Areas))
		defaults := make(map[string]ledger.Entry, len(mc.Areas))
		for _, a := range mc.Areas {
			catalog[a.Code] = a.Part
			defaults[a.Code] = ledger.Entry{Part: a.Part, Quantity: a.Quantity, Minimum: a.Minimum}
		}

		path := LedgerPath(cfg.DataDir, mc.Code)
		l, err := ledger.Open(mc.Code, path, defaults)
		if err != nil {
			return nil, err
		}
		slog.Info("stock ledger loaded", "model", mc.Code, "path", path, "areas", len(catalog))
		r.models = append(r.models, &Model{Code: mc.Code, Catalog: catalog, Ledger: l})
	}
	return r, nil
}

// Get returns the model with the given code.
func (r *Registry) Get(code string) (*Model, bool) {
	for _, m := range r.models {
		if m.Code == code {
			return m, true
		}
	}
	return nil, false
}

// All returns the models in configuration order.
func (r *Registry) All() []*Model {
	out := make([]*Model, len(r.models))
	copy(out, r.models)
	return out
}

// Codes returns the model codes in configuration order.
func (r *Registry) Codes() []string {
	codes := make([]string, len(r.models))
	for i, m := range r.models {
		codes[i] = m.Code
	}
	return codes
}

// FlushAll writes every ledger to disk. It attempts all models and returns
// the first error.
func (r *Registry) FlushAll() error {
	var first error
	for _, m := range r.models {
		if err := m.Ledger.Flush(); err != nil {
			slog.Error("stock flush failed", "model", m.Code, "err", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

package product

import (
	"os"
	"reflect"
	"testing"

	"github.com/flo-mic/replenish/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestLoad_OneLedgerPerModel(t *testing.T) {
	cfg := testConfig(t)
	r, err := Load(cfg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.Codes(); !reflect.DeepEqual(got, []string{"313", "314"}) {
		t.Fatalf("Codes = %v", got)
	}

	m313, _ := r.Get("313")
	m314, _ := r.Get("314")
	if m313.Ledger == m314.Ledger {
		t.Fatal("models must not share a ledger")
	}
	if m313.Ledger.Path() == m314.Ledger.Path() {
		t.Fatal("models must not share a file")
	}
	if m313.Catalog["A4"] != "Parabrisas" {
		t.Errorf("catalog A4 = %q", m313.Catalog["A4"])
	}
	if got := m313.Catalog.Areas(); got[0] != "A1" || len(got) != 6 {
		t.Errorf("Areas = %v", got)
	}
}

func TestGet_Unknown(t *testing.T) {
	r, err := Load(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Get("999"); ok {
		t.Error("expected unknown model")
	}
}

func TestFlushAll(t *testing.T) {
	cfg := testConfig(t)
	r, err := Load(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.FlushAll(); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	for _, code := range r.Codes() {
		if _, err := os.Stat(LedgerPath(cfg.DataDir, code)); err != nil {
			t.Errorf("ledger file for %s: %v", code, err)
		}
	}
}

func TestLoad_CorruptLedgerFails(t *testing.T) {
	cfg := testConfig(t)
	os.WriteFile(LedgerPath(cfg.DataDir, "314"), []byte("{not json"), 0644)
	if _, err := Load(cfg); err == nil {
		t.Error("expected error for corrupt ledger file")
	}
}

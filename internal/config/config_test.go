package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kiosk.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
operators:
  AD88C801: Raquel
admins:
  3A163602: Admin Erick
models:
  - code: "313"
    areas:
      - {code: A1, part: Eixos, quantity: 100, minimum: 20}
`

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
kiosk_name: Linha 2
data_dir: /tmp/replenish
reader:
  device: /dev/ttyUSB1
  baud: 115200
  read_timeout: 500ms
timings:
  inactivity: 90s
operators:
  AD88C801: Raquel
admins:
  3A163602: Admin Erick
models:
  - code: "313"
    areas:
      - {code: A1, part: Eixos, quantity: 100, minimum: 20}
      - {code: A2, part: Chassi, quantity: 50, minimum: 10}
  - code: "314"
    areas:
      - {code: A1, part: Eixos, quantity: 10, minimum: 2}
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.KioskName != "Linha 2" {
		t.Errorf("KioskName = %q", cfg.KioskName)
	}
	if cfg.Reader.Device != "/dev/ttyUSB1" || cfg.Reader.Baud != 115200 {
		t.Errorf("Reader = %+v", cfg.Reader)
	}
	if cfg.Reader.ReadTimeout != 500*time.Millisecond {
		t.Errorf("ReadTimeout = %v", cfg.Reader.ReadTimeout)
	}
	if cfg.Timings.Inactivity != 90*time.Second {
		t.Errorf("Inactivity = %v", cfg.Timings.Inactivity)
	}
	if len(cfg.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(cfg.Models))
	}
	m, ok := cfg.Model("314")
	if !ok || m.Areas[0].Quantity != 10 {
		t.Errorf("Model(314) = %+v, %v", m, ok)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Reader.Baud != 9600 {
		t.Errorf("default Baud = %d, want 9600", cfg.Reader.Baud)
	}
	if cfg.Reader.PollInterval != 100*time.Millisecond {
		t.Errorf("default PollInterval = %v", cfg.Reader.PollInterval)
	}
	if cfg.Timings.Inactivity != 60*time.Second {
		t.Errorf("default Inactivity = %v", cfg.Timings.Inactivity)
	}
	if cfg.Timings.Debounce != 3*time.Second {
		t.Errorf("default Debounce = %v", cfg.Timings.Debounce)
	}
	if cfg.Audit.CSVPath != filepath.Join(cfg.DataDir, "reposicoes.csv") {
		t.Errorf("default CSVPath = %q", cfg.Audit.CSVPath)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("REPLENISH_SERIAL_DEVICE", "/dev/ttyS9")
	t.Setenv("REPLENISH_DATA_DIR", "/srv/kiosk")
	t.Setenv("REPLENISH_SIMULATE", "true")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Reader.Device != "/dev/ttyS9" {
		t.Errorf("Device = %q", cfg.Reader.Device)
	}
	if cfg.DataDir != "/srv/kiosk" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if !cfg.Reader.Simulate {
		t.Error("expected Simulate = true")
	}
	// CSV path default follows the overridden data dir.
	if !strings.HasPrefix(cfg.Audit.CSVPath, "/srv/kiosk") {
		t.Errorf("CSVPath = %q", cfg.Audit.CSVPath)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing operators", `
admins: {X: Boss}
models: [{code: "313", areas: [{code: A1, part: P}]}]
`},
		{"missing admins", `
operators: {X: Ana}
models: [{code: "313", areas: [{code: A1, part: P}]}]
`},
		{"overlapping tags", `
operators: {X: Ana}
admins: {X: Boss}
models: [{code: "313", areas: [{code: A1, part: P}]}]
`},
		{"overlapping tags after trimming", `
operators: {AD88C801: Ana}
admins: {" AD88C801": Boss}
models: [{code: "313", areas: [{code: A1, part: P}]}]
`},
		{"whitespace duplicate within a table", `
operators: {AD88C801: Ana, "AD88C801 ": Bia}
admins: {Y: Boss}
models: [{code: "313", areas: [{code: A1, part: P}]}]
`},
		{"blank tag", `
operators: {"  ": Ana}
admins: {Y: Boss}
models: [{code: "313", areas: [{code: A1, part: P}]}]
`},
		{"no models", `
operators: {X: Ana}
admins: {Y: Boss}
`},
		{"duplicate model", `
operators: {X: Ana}
admins: {Y: Boss}
models:
  - {code: "313", areas: [{code: A1, part: P}]}
  - {code: "313", areas: [{code: A1, part: P}]}
`},
		{"model without areas", `
operators: {X: Ana}
admins: {Y: Boss}
models: [{code: "313"}]
`},
		{"negative stock", `
operators: {X: Ana}
admins: {Y: Boss}
models: [{code: "313", areas: [{code: A1, part: P, quantity: -1}]}]
`},
		{"duplicate area", `
operators: {X: Ana}
admins: {Y: Boss}
models: [{code: "313", areas: [{code: A1, part: P}, {code: A1, part: Q}]}]
`},
		{"not yaml", `operators: [`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, c.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error when config file does not exist")
	}
}

func TestSaveAndLoad_Default(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "kiosk.yaml")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Models) != 2 {
		t.Errorf("expected 2 default models, got %d", len(cfg.Models))
	}
	if cfg.Admins["3A163602"] != "Admin Erick" {
		t.Errorf("admin table not preserved: %v", cfg.Admins)
	}
	if cfg.Timings.Welcome != 800*time.Millisecond {
		t.Errorf("Welcome = %v", cfg.Timings.Welcome)
	}
}

func TestDefault_ModelsAreIndependent(t *testing.T) {
	cfg := Default()
	cfg.Models[0].Areas[0].Quantity = 1
	if cfg.Models[1].Areas[0].Quantity == 1 {
		t.Error("default models must not share area slices")
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the kiosk looks for its configuration.
const DefaultPath = "/etc/replenish/kiosk.yaml"

// Config is loaded from kiosk.yaml at startup and never mutated at runtime.
type Config struct {
	KioskName string            `yaml:"kiosk_name"`
	DataDir   string            `yaml:"data_dir"`
	LogDir    string            `yaml:"log_dir"`
	Reader    ReaderConfig      `yaml:"reader"`
	Audit     AuditConfig       `yaml:"audit"`
	Timings   Timings           `yaml:"timings"`
	Operators map[string]string `yaml:"operators"` // tag → display name
	Admins    map[string]string `yaml:"admins"`    // tag → display name
	Models    []ModelConfig     `yaml:"models"`
}

// ReaderConfig describes the serial tag reader.
type ReaderConfig struct {
	Device       string        `yaml:"device"` // e.g. /dev/ttyACM0
	Baud         int           `yaml:"baud"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Simulate     bool          `yaml:"simulate"` // skip the hardware and offer simulated reads
}

// AuditConfig locates the replenishment log.
type AuditConfig struct {
	CSVPath    string `yaml:"csv_path"`
	SQLitePath string `yaml:"sqlite_path"` // optional mirror
}

// Timings holds the session controller delays.
type Timings struct {
	Inactivity    time.Duration `yaml:"inactivity"`
	Debounce      time.Duration `yaml:"debounce"`
	CardDetected  time.Duration `yaml:"card_detected"`
	Welcome       time.Duration `yaml:"welcome"`
	RejectDisplay time.Duration `yaml:"reject_display"`
}

// ModelConfig is one product model with its area catalog and default stock.
type ModelConfig struct {
	Code  string       `yaml:"code"`
	Areas []AreaConfig `yaml:"areas"`
}

// AreaConfig is a catalog entry plus its default stock levels.
type AreaConfig struct {
	Code     string `yaml:"code"`
	Part     string `yaml:"part"`
	Quantity int    `yaml:"quantity"`
	Minimum  int    `yaml:"minimum"`
}

// envOverrides are applied on top of the file.
type envOverrides struct {
	SerialDevice string `env:"REPLENISH_SERIAL_DEVICE"`
	SerialBaud   int    `env:"REPLENISH_SERIAL_BAUD"`
	DataDir      string `env:"REPLENISH_DATA_DIR"`
	LogDir       string `env:"REPLENISH_LOG_DIR"`
	Simulate     *bool  `env:"REPLENISH_SIMULATE"`
}

// LoadConfig reads and parses the kiosk config file, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the static tables the kiosk cannot run without.
func (c *Config) Validate() error {
	if len(c.Operators) == 0 {
		return fmt.Errorf("'operators' is required")
	}
	if len(c.Admins) == 0 {
		return fmt.Errorf("'admins' is required")
	}
	admins, err := canonicalTags("admins", c.Admins)
	if err != nil {
		return err
	}
	operators, err := canonicalTags("operators", c.Operators)
	if err != nil {
		return err
	}
	for tag := range admins {
		if _, dup := operators[tag]; dup {
			return fmt.Errorf("tag %q is listed as both operator and admin", tag)
		}
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}

	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Code == "" {
			return fmt.Errorf("models: 'code' is required")
		}
		if seen[m.Code] {
			return fmt.Errorf("models: duplicate code %q", m.Code)
		}
		seen[m.Code] = true
		if len(m.Areas) == 0 {
			return fmt.Errorf("model %s: at least one area is required", m.Code)
		}
		areas := make(map[string]bool, len(m.Areas))
		for _, a := range m.Areas {
			if a.Code == "" || a.Part == "" {
				return fmt.Errorf("model %s: areas need 'code' and 'part'", m.Code)
			}
			if areas[a.Code] {
				return fmt.Errorf("model %s: duplicate area %q", m.Code, a.Code)
			}
			areas[a.Code] = true
			if a.Quantity < 0 || a.Minimum < 0 {
				return fmt.Errorf("model %s area %s: stock values must not be negative", m.Code, a.Code)
			}
		}
	}
	if c.Reader.Baud <= 0 {
		return fmt.Errorf("reader: 'baud' must be > 0")
	}
	return nil
}

// canonicalTags returns the trimmed tag set of table. Tags are compared the
// way the resolver matches them, so two keys differing only in whitespace
// are duplicates.
func canonicalTags(name string, table map[string]string) (map[string]bool, error) {
	out := make(map[string]bool, len(table))
	for raw := range table {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			return nil, fmt.Errorf("%s: empty tag", name)
		}
		if out[tag] {
			return nil, fmt.Errorf("%s: tag %q listed more than once", name, tag)
		}
		out[tag] = true
	}
	return out, nil
}

// Model returns the model config with the given code.
func (c *Config) Model(code string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.Code == code {
			return m, true
		}
	}
	return ModelConfig{}, false
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.SerialDevice != "" {
		cfg.Reader.Device = o.SerialDevice
	}
	if o.SerialBaud != 0 {
		cfg.Reader.Baud = o.SerialBaud
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if o.LogDir != "" {
		cfg.LogDir = o.LogDir
	}
	if o.Simulate != nil {
		cfg.Reader.Simulate = *o.Simulate
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.KioskName == "" {
		cfg.KioskName = "MDC System"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/var/lib/replenish"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "/var/log/replenish"
	}
	if cfg.Audit.CSVPath == "" {
		cfg.Audit.CSVPath = filepath.Join(cfg.DataDir, "reposicoes.csv")
	}

	r := &cfg.Reader
	if r.Device == "" {
		r.Device = "/dev/ttyACM0"
	}
	if r.Baud == 0 {
		r.Baud = 9600
	}
	if r.ReadTimeout == 0 {
		r.ReadTimeout = time.Second
	}
	if r.PollInterval == 0 {
		r.PollInterval = 100 * time.Millisecond
	}

	t := &cfg.Timings
	if t.Inactivity == 0 {
		t.Inactivity = 60 * time.Second
	}
	if t.Debounce == 0 {
		t.Debounce = 3 * time.Second
	}
	if t.CardDetected == 0 {
		t.CardDetected = time.Second
	}
	if t.Welcome == 0 {
		t.Welcome = 800 * time.Millisecond
	}
	if t.RejectDisplay == 0 {
		t.RejectDisplay = 1200 * time.Millisecond
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/flo-mic/replenish/internal/config"
)

// initAnswers are the wizard's inputs on top of the built-in defaults.
type initAnswers struct {
	KioskName string
	DataDir   string
	Device    string
	Simulate  bool
	Mirror    bool
}

// Init runs the interactive wizard that writes a starter kiosk.yaml.
func Init(args []string, stdout io.Writer) error {
	path := config.DefaultPath
	reinit := false
	for _, a := range args {
		if a == "--reinit" || a == "-r" {
			reinit = true
		} else {
			path = a
		}
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !reinit {
		fmt.Fprintf(stdout, "[replenish] %s already exists. Run with --reinit to overwrite.\n", path)
		return nil
	}

	fmt.Fprintln(stdout, "Welcome to replenish init. Let's set up this kiosk.")
	fmt.Fprintln(stdout)

	defaults := config.Default()
	ans := initAnswers{
		KioskName: defaults.KioskName,
		DataDir:   defaults.DataDir,
		Device:    defaults.Reader.Device,
	}

	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Kiosk name").
			Description("Shown at the top of every screen.").
			Value(&ans.KioskName).
			Validate(notEmpty("kiosk name")),
		huh.NewInput().
			Title("Data directory").
			Description("Stock files and the replenishment log live here.").
			Value(&ans.DataDir).
			Validate(absPath),
	)).Run(); err != nil {
		return err
	}

	hasReader := true
	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Is an RFID reader attached?").
			Description("No = simulate tag reads from the terminal").
			Affirmative("Yes").
			Negative("No").
			Value(&hasReader),
	)).Run(); err != nil {
		return err
	}
	ans.Simulate = !hasReader

	if !ans.Simulate {
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Serial device").
				Description("e.g. /dev/ttyACM0 or /dev/ttyUSB0").
				Value(&ans.Device).
				Validate(absPath),
		)).Run(); err != nil {
			return err
		}
	}

	if err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Mirror the replenishment log into SQLite?").
			Description("Enables 'replenish history'.").
			Value(&ans.Mirror),
	)).Run(); err != nil {
		return err
	}

	cfg := buildConfig(ans)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "Created %s\n", path)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintln(stdout, "  1. Edit operators, admins and models in the file to match your badges and line")
	fmt.Fprintf(stdout, "  2. Check the stock with: replenish stock --config %s\n", path)
	fmt.Fprintf(stdout, "  3. Start the kiosk with: replenish run --config %s\n", path)
	return nil
}

// buildConfig applies the wizard answers to the built-in tables.
func buildConfig(ans initAnswers) *config.Config {
	cfg := config.Default()
	cfg.KioskName = strings.TrimSpace(ans.KioskName)
	if dir := strings.TrimSpace(ans.DataDir); dir != "" && dir != cfg.DataDir {
		cfg.DataDir = dir
		cfg.Audit.CSVPath = filepath.Join(dir, "reposicoes.csv")
	}
	cfg.Reader.Simulate = ans.Simulate
	if dev := strings.TrimSpace(ans.Device); dev != "" {
		cfg.Reader.Device = dev
	}
	if ans.Mirror {
		cfg.Audit.SQLitePath = filepath.Join(cfg.DataDir, "replenishments.db")
	}
	return cfg
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func absPath(s string) error {
	if !filepath.IsAbs(strings.TrimSpace(s)) {
		return fmt.Errorf("must be an absolute path")
	}
	return nil
}

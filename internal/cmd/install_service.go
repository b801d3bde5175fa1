package cmd

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/flo-mic/replenish/internal/config"
)

// Overridden in tests.
var (
	unitDir   = "/etc/systemd/system"
	systemctl = runSystemctl
)

const unitName = "replenish.service"

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=replenish kiosk ({{.Kiosk}})
After=systemd-user-sessions.service
Conflicts=getty@{{.TTY}}.service

[Service]
Type=simple
ExecStart={{.Binary}} run --config {{.Config}}
Restart=on-failure
RestartSec=5
StandardInput=tty
StandardOutput=tty
TTYPath=/dev/{{.TTY}}
TTYReset=yes
TTYVHangup=yes

[Install]
WantedBy=multi-user.target
`))

type unitParams struct {
	Kiosk  string
	Binary string
	Config string
	TTY    string
}

// InstallService writes a systemd unit that runs the kiosk on a console and
// enables it.
func InstallService(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("install-service", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", config.DefaultPath, "Path to kiosk config")
	tty := fs.String("tty", "tty1", "Console the kiosk UI takes over")
	binary := fs.String("binary", "", "Path to the replenish binary (default: this executable)")
	noEnable := fs.Bool("no-enable", false, "Write the unit without enabling or starting it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Fail before touching systemd if the kiosk could not start.
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}

	bin := *binary
	if bin == "" {
		if bin, err = os.Executable(); err != nil {
			return fmt.Errorf("locating binary: %w", err)
		}
	}
	absCfg, err := filepath.Abs(*cfgPath)
	if err != nil {
		return err
	}

	unit, err := renderUnit(unitParams{Kiosk: cfg.KioskName, Binary: bin, Config: absCfg, TTY: *tty})
	if err != nil {
		return err
	}

	dest := filepath.Join(unitDir, unitName)
	fmt.Fprintf(stdout, "[replenish] Writing %s\n", dest)
	if err := os.MkdirAll(unitDir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, unit, 0644); err != nil {
		return fmt.Errorf("writing unit: %w", err)
	}

	if err := systemctl(stdout, "daemon-reload"); err != nil {
		return err
	}
	if *noEnable {
		fmt.Fprintf(stdout, "[replenish] Unit installed. Enable with: systemctl enable --now %s\n", unitName)
		return nil
	}
	if err := systemctl(stdout, "enable", "--now", unitName); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "[replenish] Done! The kiosk is running on %s\n", *tty)
	return nil
}

func renderUnit(p unitParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := unitTemplate.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("rendering unit: %w", err)
	}
	return buf.Bytes(), nil
}

func runSystemctl(log io.Writer, args ...string) error {
	fmt.Fprintf(log, "[replenish] systemctl %v\n", args)
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = log
	cmd.Stderr = log
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %v: %w", args, err)
	}
	return nil
}

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/flo-mic/replenish/internal/audit"
	"github.com/flo-mic/replenish/internal/audit/sqlite"
	"github.com/flo-mic/replenish/internal/config"
	"github.com/flo-mic/replenish/internal/identity"
	"github.com/flo-mic/replenish/internal/kiosk"
	"github.com/flo-mic/replenish/internal/product"
	"github.com/flo-mic/replenish/internal/reader"
	"github.com/flo-mic/replenish/internal/tui"
)

// Run starts the kiosk: event loop, tag ingestion and, unless headless, the
// terminal front end.
func Run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", config.DefaultPath, "Path to kiosk config")
	headless := fs.Bool("headless", false, "Run without the terminal UI (logs to stdout)")
	debug := fs.Bool("debug", false, "Log tag reads and other debug events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}

	// The UI owns the terminal, so logs only go to the file unless headless.
	console := io.Discard
	if *headless {
		console = stdout
	}
	logFile, err := setupLogging(cfg.LogDir, console, *debug)
	if err != nil {
		return err
	}
	defer logFile.Close()

	models, err := product.Load(cfg)
	if err != nil {
		return err
	}

	recorder, closeRecorder, err := openRecorder(cfg.Audit)
	if err != nil {
		return err
	}
	defer closeRecorder()

	var ingester *reader.Ingester
	if !cfg.Reader.Simulate {
		ingester = reader.NewIngester(readerConfig(cfg.Reader), reader.OpenSerial)
	}

	feed := kiosk.NewFeed()
	loop := kiosk.New(kiosk.Options{
		Resolver: identity.NewResolver(cfg.Admins, cfg.Operators),
		Models:   models,
		Recorder: recorder,
		Observer: feed,
		Timings:  cfg.Timings,
		Ingester: ingester,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("replenish starting",
		"kiosk", cfg.KioskName, "models", models.Codes(), "device", cfg.Reader.Device,
		"simulate", cfg.Reader.Simulate, "csv", cfg.Audit.CSVPath)

	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(ctx) }()

	if *headless {
		return <-loopErr
	}

	var sim []tui.SimTag
	if cfg.Reader.Simulate {
		sim = tui.SimTags(cfg.Admins, cfg.Operators)
	}
	app := tui.New(loop, feed, tui.Options{Title: cfg.KioskName, Simulate: sim, Out: stdout})
	uiErr := app.Run(ctx)
	stop()
	if err := <-loopErr; err != nil {
		return err
	}
	return uiErr
}

// setupLogging sets the default logger to write to console and
// <dir>/replenish.log.
func setupLogging(dir string, console io.Writer, debug bool) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(dir, "replenish.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	opts := &slog.HandlerOptions{}
	if debug {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(console, logFile), opts)))
	return logFile, nil
}

// openRecorder returns the CSV recorder, mirrored into SQLite when a path
// is configured.
func openRecorder(cfg config.AuditConfig) (audit.Recorder, func(), error) {
	csv := audit.NewCSVRecorder(cfg.CSVPath)
	if cfg.SQLitePath == "" {
		return csv, func() {}, nil
	}

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit mirror: %w", err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing audit mirror", "err", err)
		}
	}
	return audit.Multi{csv, store}, closeFn, nil
}

func readerConfig(r config.ReaderConfig) reader.Config {
	return reader.Config{
		Device:       r.Device,
		Baud:         r.Baud,
		ReadTimeout:  r.ReadTimeout,
		PollInterval: r.PollInterval,
	}
}

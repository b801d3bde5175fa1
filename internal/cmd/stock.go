package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/flo-mic/replenish/internal/audit"
	"github.com/flo-mic/replenish/internal/audit/sqlite"
	"github.com/flo-mic/replenish/internal/config"
	"github.com/flo-mic/replenish/internal/ledger"
	"github.com/flo-mic/replenish/internal/product"
)

// Stock prints the ledger of one model, or of every model.
func Stock(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stock", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", config.DefaultPath, "Path to kiosk config")
	model := fs.String("model", "", "Model code (default: all models)")
	below := fs.Bool("below", false, "Only list areas at or below their minimum")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	models, err := product.Load(cfg)
	if err != nil {
		return err
	}

	selected := models.All()
	if *model != "" {
		m, ok := models.Get(*model)
		if !ok {
			return fmt.Errorf("unknown model %q (configured: %v)", *model, models.Codes())
		}
		selected = []*product.Model{m}
	}

	for i, m := range selected {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		rows := m.Ledger.Entries()
		if *below {
			rows = m.Ledger.BelowMinimum()
		}
		printStock(stdout, m.Code, rows, *below)
	}
	return nil
}

func printStock(w io.Writer, model string, rows []ledger.Row, below bool) {
	fmt.Fprintf(w, "[replenish] Model %s\n", model)
	if below && len(rows) == 0 {
		fmt.Fprintln(w, "  all areas above minimum")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  AREA\tPART\tQUANTITY\tMINIMUM\t")
	for _, r := range rows {
		mark := ""
		if r.BelowMinimum() {
			mark = "LOW"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%d\t%s\n", r.Area, r.Part, r.Quantity, r.Minimum, mark)
	}
	tw.Flush()
}

// History prints the most recent replenishments from the SQLite mirror.
func History(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", config.DefaultPath, "Path to kiosk config")
	limit := fs.Int("limit", 20, "Number of records to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if cfg.Audit.SQLitePath == "" {
		return fmt.Errorf("audit.sqlite_path is not configured; the CSV log is at %s", cfg.Audit.CSVPath)
	}

	store, err := sqlite.Open(cfg.Audit.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	recs, err := store.List(ctx, *limit)
	if err != nil {
		return err
	}
	printHistory(stdout, recs)
	return nil
}

func printHistory(w io.Writer, recs []audit.Record) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "[replenish] No replenishments recorded.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tOPERATOR\tMODEL\tAREA\tPART\tQUANTITY")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.Timestamp.Local().Format(audit.TimestampLayout), r.Operator, r.Model, r.Area, r.Part, r.Quantity)
	}
	tw.Flush()
}

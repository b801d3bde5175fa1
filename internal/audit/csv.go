package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// TimestampLayout is the timestamp format of the CSV log.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the first row of a new CSV log.
var Header = []string{"timestamp", "operator", "area", "part", "quantity", "model"}

// CSVRecorder appends one row per record to a CSV file. The file is never
// rewritten.
type CSVRecorder struct {
	mu   sync.Mutex
	path string
}

// NewCSVRecorder returns a recorder appending to path.
func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

// Path returns the log file.
func (r *CSVRecorder) Path() string { return r.path }

// Append writes rec, adding the header first if the file is new or empty,
// and syncs before returning.
func (r *CSVRecorder) Append(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("creating audit dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("writing audit header: %w", err)
		}
	}
	row := []string{
		rec.Timestamp.Format(TimestampLayout),
		rec.Operator,
		rec.Area,
		rec.Part,
		strconv.Itoa(rec.Quantity),
		rec.Model,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing audit row: %w", err)
	}
	return f.Sync()
}

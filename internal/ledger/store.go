package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Seams for crash simulation in tests.
var (
	renameFile = os.Rename
	syncDir    = fsyncDir
)

// fileEntry is the on-disk shape of one area.
type fileEntry struct {
	Part     string `json:"part"`
	Quantity int    `json:"quantity"`
	Minimum  int    `json:"minimum"`
}

// Field aliases accepted on load. The second name of each pair is the legacy
// key written by estoque_temp.json files.
var (
	partKeys     = []string{"part", "peca"}
	quantityKeys = []string{"quantity", "quantidade"}
	minimumKeys  = []string{"minimum", "minimo"}
)

// loadTable reads a ledger file. found is false if the file does not exist.
func loadTable(path string) (table map[string]Entry, found bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, true, fmt.Errorf("parsing %s: %w", path, err)
	}

	table = make(map[string]Entry, len(raw))
	for area, fields := range raw {
		e, err := decodeEntry(fields)
		if err != nil {
			return nil, true, fmt.Errorf("parsing %s: area %s: %w", path, area, err)
		}
		table[area] = e
	}
	return table, true, nil
}

func decodeEntry(fields map[string]any) (Entry, error) {
	var e Entry
	if v, ok := lookup(fields, partKeys); ok {
		s, isStr := v.(string)
		if !isStr {
			return Entry{}, fmt.Errorf("part must be a string")
		}
		e.Part = s
	}

	var err error
	if e.Quantity, err = intField(fields, quantityKeys); err != nil {
		return Entry{}, err
	}
	if e.Minimum, err = intField(fields, minimumKeys); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func lookup(fields map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func intField(fields map[string]any, keys []string) (int, error) {
	v, ok := lookup(fields, keys)
	if !ok {
		return 0, fmt.Errorf("missing %s", keys[0])
	}
	n, err := coerceInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", keys[0], err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: negative value %d", keys[0], n)
	}
	return n, nil
}

// coerceInt accepts JSON integers, float-valued numbers (truncated) and
// numeric strings.
func coerceInt(v any) (int, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f >= math.MaxInt || f < math.MinInt {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return int(f), nil
}

// writeTable replaces path atomically: the table is written to a temp file in
// the same directory, synced, and renamed over path.
func writeTable(path string, table map[string]Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	out := make(map[string]fileEntry, len(table))
	for area, e := range table {
		out[area] = fileEntry{Part: e.Part, Quantity: e.Quantity, Minimum: e.Minimum}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFile(tmpName, path); err != nil {
		return err
	}
	committed = true
	// The rename is the commit point; a failed directory sync only weakens
	// durability of the new name.
	if err := syncDir(dir); err != nil {
		slog.Warn("ledger: directory sync failed", "dir", dir, "err", err)
	}
	return nil
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

package audit

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestCSVRecorder_HeaderOnceAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reposicoes.csv")
	r := NewCSVRecorder(path)
	ts := time.Date(2026, 3, 9, 14, 5, 7, 0, time.Local)

	ctx := context.Background()
	if err := r.Append(ctx, NewRecord(ts, "Raquel", "A4", "Parabrisas", 10, "313")); err != nil {
		t.Fatal(err)
	}
	// A new recorder on the same file must not repeat the header.
	if err := NewCSVRecorder(path).Append(ctx, NewRecord(ts.Add(time.Minute), "Raquel", "A1", "Eixos", 2, "314")); err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		Header,
		{"2026-03-09 14:05:07", "Raquel", "A4", "Parabrisas", "10", "313"},
		{"2026-03-09 14:06:07", "Raquel", "A1", "Eixos", "2", "314"},
	}
	if got := readRows(t, path); !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v\nwant %v", got, want)
	}
}

func TestCSVRecorder_QuotesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	r := NewCSVRecorder(path)
	rec := NewRecord(time.Now(), `Ana "Chefe", turno B`, "A2", "Chassi", 1, "313")
	if err := r.Append(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	rows := readRows(t, path)
	if rows[1][1] != rec.Operator {
		t.Errorf("operator = %q, want %q", rows[1][1], rec.Operator)
	}
}

func TestCSVRecorder_CancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewCSVRecorder(path).Append(ctx, Record{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no file should be created for a cancelled append")
	}
}

func TestMulti_StopsAtFirstFailure(t *testing.T) {
	first, second := NewMemorySink(), NewMemorySink()
	first.FailWith(errors.New("boom"))

	err := Multi{first, second}.Append(context.Background(), Record{ID: "1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if second.Count() != 0 {
		t.Error("second recorder should not be reached")
	}

	first.FailWith(nil)
	if err := (Multi{first, second}).Append(context.Background(), Record{ID: "2"}); err != nil {
		t.Fatal(err)
	}
	if first.Count() != 1 || second.Count() != 1 {
		t.Errorf("counts = %d, %d", first.Count(), second.Count())
	}
}

func TestNewRecord_UniqueIDs(t *testing.T) {
	a := NewRecord(time.Now(), "x", "A1", "Eixos", 1, "313")
	b := NewRecord(time.Now(), "x", "A1", "Eixos", 1, "313")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("IDs = %q, %q", a.ID, b.ID)
	}
}

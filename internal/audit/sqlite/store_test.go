package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flo-mic/replenish/internal/audit"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestAppendAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)

	for i, area := range []string{"A1", "A2", "A3"} {
		rec := audit.NewRecord(base.Add(time.Duration(i)*time.Minute), "Raquel", area, "P"+area, i+1, "313")
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append %s: %v", area, err)
		}
	}

	got, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Area != "A3" || got[1].Area != "A2" {
		t.Errorf("order = %s, %s; want newest first", got[0].Area, got[1].Area)
	}
	if got[0].Quantity != 3 || got[0].Model != "313" || got[0].Part != "PA3" {
		t.Errorf("record = %+v", got[0])
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("timestamp = %v", got[0].Timestamp)
	}
}

func TestAppend_Validation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Append(ctx, audit.Record{Quantity: 1}); err == nil {
		t.Error("expected error for missing id")
	}
	rec := audit.NewRecord(time.Now(), "Raquel", "A1", "Eixos", 0, "313")
	if err := store.Append(ctx, rec); err == nil {
		t.Error("expected error for non-positive quantity")
	}
	ok := audit.NewRecord(time.Now(), "Raquel", "A1", "Eixos", 1, "313")
	if err := store.Append(ctx, ok); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, ok); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestList_InvalidLimit(t *testing.T) {
	if _, err := openTestStore(t).List(context.Background(), 0); err == nil {
		t.Error("expected error for zero limit")
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Errorf("Close on nil store: %v", err)
	}
	if err := s.Append(context.Background(), audit.Record{ID: "x"}); err == nil {
		t.Error("expected error from nil store")
	}
}

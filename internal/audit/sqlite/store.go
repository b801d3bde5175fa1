package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flo-mic/replenish/internal/audit"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS replenishments (
	id TEXT PRIMARY KEY,
	recorded_at INTEGER NOT NULL,
	operator TEXT NOT NULL,
	area TEXT NOT NULL,
	part TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	model TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS replenishments_recorded_at ON replenishments (recorded_at);
`

// Store mirrors the replenishment log into SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the SQLite audit store and ensures its schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append inserts one record.
func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO replenishments (
	id,
	recorded_at,
	operator,
	area,
	part,
	quantity,
	model
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		rec.ID,
		rec.Timestamp.UTC().UnixMilli(),
		rec.Operator,
		rec.Area,
		rec.Part,
		rec.Quantity,
		rec.Model,
	)
	if err != nil {
		return fmt.Errorf("record replenishment: %w", err)
	}
	return nil
}

// List returns the newest records first.
func (s *Store) List(ctx context.Context, limit int) ([]audit.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	recorded_at,
	operator,
	area,
	part,
	quantity,
	model
FROM replenishments
ORDER BY recorded_at DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list replenishments: %w", err)
	}
	defer rows.Close()

	records := make([]audit.Record, 0, limit)
	for rows.Next() {
		var rec audit.Record
		var recordedAt int64
		if err := rows.Scan(
			&rec.ID,
			&recordedAt,
			&rec.Operator,
			&rec.Area,
			&rec.Part,
			&rec.Quantity,
			&rec.Model,
		); err != nil {
			return nil, fmt.Errorf("scan replenishment: %w", err)
		}
		rec.Timestamp = time.UnixMilli(recordedAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate replenishments: %w", err)
	}
	return records, nil
}

var _ audit.Recorder = (*Store)(nil)

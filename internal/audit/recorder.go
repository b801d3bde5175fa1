package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one successful replenishment. Records are append-only.
type Record struct {
	ID        string
	Timestamp time.Time
	Operator  string
	Area      string
	Part      string
	Quantity  int
	Model     string
}

// NewRecord stamps a record with a fresh ID and the given time.
func NewRecord(now time.Time, operator, area, part string, quantity int, model string) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: now,
		Operator:  operator,
		Area:      area,
		Part:      part,
		Quantity:  quantity,
		Model:     model,
	}
}

// Recorder appends replenishment records to a durable log.
type Recorder interface {
	Append(ctx context.Context, rec Record) error
}

// Multi fans a record out to several recorders in order. The first failure
// stops the fan-out and is returned.
type Multi []Recorder

func (m Multi) Append(ctx context.Context, rec Record) error {
	for _, r := range m {
		if err := r.Append(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

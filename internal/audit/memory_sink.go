package audit

import (
	"context"
	"sync"
)

// MemorySink stores records in memory (testing use)
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	err     error
}

// NewMemorySink creates an empty in-memory recorder
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores rec unless a failure has been injected with FailWith
func (s *MemorySink) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

// FailWith makes subsequent appends return err; nil restores normal behavior
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Records returns a copy of all stored records
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Count returns the number of stored records
func (s *MemorySink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

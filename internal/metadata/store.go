// Package metadata provides the ordered page-record store aligned with the vector index.
package metadata

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/pagesearch/internal/models"
)

// ErrIndexOutOfRange is returned by Get for a position that holds no record.
var ErrIndexOutOfRange = errors.New("metadata position out of range")

// Store is an append-only ordered sequence of page records.
type Store struct {
	records []models.PageRecord
	mu      sync.RWMutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Append adds records in order.
func (s *Store) Append(records ...models.PageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Get returns the record at position.
func (s *Store) Get(position int) (models.PageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position < 0 || position >= len(s.records) {
		return models.PageRecord{}, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, position, len(s.records))
	}
	return s.records[position], nil
}

// Count returns the number of records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset discards all records.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

// Records returns a copy of all records in order.
func (s *Store) Records() []models.PageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PageRecord, len(s.records))
	copy(out, s.records)
	return out
}

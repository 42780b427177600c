// Package memory provides the in-memory run archive, the default RunStore
// for embedded use and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.RunRecord
	mu   sync.RWMutex
}

var _ ports.RunStore = (*Store)(nil)

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.RunRecord),
	}
}

// Save persists the record in memory, overwriting any existing record with
// the same run id.
func (s *Store) Save(ctx context.Context, record domain.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[record.ID] = copyRecord(record)
	return nil
}

// Load retrieves a record by run id.
func (s *Store) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.data[id]
	if !ok {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}
	return copyRecord(record), nil
}

// Delete removes a record. Unknown ids are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns all records, newest first by start time.
func (s *Store) List(ctx context.Context) ([]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.RunRecord, 0, len(s.data))
	for _, record := range s.data {
		records = append(records, copyRecord(record))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

// copyRecord isolates stored records from caller mutation, mirroring what a
// serializing store does naturally.
func copyRecord(record domain.RunRecord) domain.RunRecord {
	out := record
	if record.Steps != nil {
		out.Steps = make([]domain.StepReport, len(record.Steps))
		for i, step := range record.Steps {
			out.Steps[i] = step
			out.Steps[i].Output = step.Output.Clone()
		}
	}
	return out
}

// Package file provides a filesystem-backed run archive: one JSON file per
// run. It keeps history across processes without asking for a redis server.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
)

// Store implements ports.RunStore using the local filesystem.
// It stores run records as JSON files in a configured directory.
type Store struct {
	BasePath string
}

var _ ports.RunStore = (*Store)(nil)

// NewStore creates a new file store rooted at basePath.
// If basePath is empty, it defaults to ".furrow/runs".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".furrow", "runs")
	}
	return &Store{BasePath: basePath}
}

// Save persists the record to a JSON file named after the run id.
func (f *Store) Save(ctx context.Context, record domain.RunRecord) error {
	if err := validateID(record.ID); err != nil {
		return err
	}

	if err := os.MkdirAll(f.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure run directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := os.WriteFile(f.path(record.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}

	return nil
}

// Load retrieves a record by run id.
func (f *Store) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	if err := validateID(id); err != nil {
		return domain.RunRecord{}, err
	}

	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.RunRecord{}, domain.ErrRunNotFound
		}
		return domain.RunRecord{}, fmt.Errorf("failed to read run file: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.RunRecord{}, fmt.Errorf("failed to unmarshal run record: %w", err)
	}

	return record, nil
}

// Delete removes the run file. Unknown ids are not an error.
func (f *Store) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	err := os.Remove(f.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}

	return nil
}

// List returns all records, newest first by start time.
func (f *Store) List(ctx context.Context) ([]domain.RunRecord, error) {
	entries, err := os.ReadDir(f.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.RunRecord{}, nil
		}
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	records := make([]domain.RunRecord, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.BasePath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read run file %s: %w", entry.Name(), err)
		}
		var record domain.RunRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run file %s: %w", entry.Name(), err)
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].StartedAt.Equal(records[j].StartedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}

func (f *Store) path(id string) string {
	return filepath.Join(f.BasePath, id+".json")
}

// validateID rejects ids that would escape the base directory. Run ids
// become file names.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("run id %q cannot contain path elements", id)
	}
	return nil
}

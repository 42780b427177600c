package ports

import (
	"context"

	"github.com/aretw0/furrow/pkg/domain"
)

// RunStore archives finished runs. Archival is optional and best-effort:
// the engine logs store failures but never fails a run over them.
type RunStore interface {
	// Save persists the record under its run id.
	Save(ctx context.Context, record domain.RunRecord) error

	// Load retrieves a record by run id.
	// Returns domain.ErrRunNotFound if the id is unknown.
	Load(ctx context.Context, id string) (domain.RunRecord, error)

	// List returns archived records, newest first.
	List(ctx context.Context) ([]domain.RunRecord, error)

	// Delete removes a record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// SourceRepository defines the interface for Source data access
type SourceRepository interface {
	// Create creates a new source with auto-generated ID
	Create(ctx context.Context, source *model.Source) (*model.Source, error)

	// Get retrieves a source by ID
	Get(ctx context.Context, id types.SourceID) (*model.Source, error)

	// GetByFingerprint retrieves a source by its content fingerprint.
	// Returns nil, nil if no source has the given fingerprint.
	GetByFingerprint(ctx context.Context, fingerprint string) (*model.Source, error)

	// List retrieves sources ordered by creation time descending.
	// Returns items, total count, and error.
	List(ctx context.Context, limit, offset int) ([]*model.Source, int, error)

	// Update updates an existing source
	Update(ctx context.Context, source *model.Source) (*model.Source, error)

	// Delete deletes a source by ID, cascading to its segments,
	// segment joins, and call metrics.
	Delete(ctx context.Context, id types.SourceID) error
}

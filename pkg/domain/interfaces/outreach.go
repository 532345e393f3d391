package interfaces

import (
	"context"
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// OutreachFilter narrows an outreach listing. Zero values mean "any".
type OutreachFilter struct {
	ProspectID types.ProspectID
	Method     string
	Outcome    types.OutreachOutcome
	From       time.Time
	To         time.Time
}

// OutreachRepository defines the interface for outreach entry access
type OutreachRepository interface {
	// Create creates a new outreach entry with auto-generated ID
	Create(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error)

	// Get retrieves an entry by ID
	Get(ctx context.Context, id types.OutreachID) (*model.OutreachEntry, error)

	// List retrieves entries matching the filter, newest first
	List(ctx context.Context, filter OutreachFilter) ([]*model.OutreachEntry, error)

	// Update updates an existing entry
	Update(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error)

	// Delete deletes an entry by ID
	Delete(ctx context.Context, id types.OutreachID) error
}

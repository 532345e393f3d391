package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// QueryHistoryRepository defines the interface for the query log
type QueryHistoryRepository interface {
	// Create records a query invocation
	Create(ctx context.Context, entry *model.QueryHistoryEntry) (*model.QueryHistoryEntry, error)

	// Get retrieves an entry by ID
	Get(ctx context.Context, id types.QueryID) (*model.QueryHistoryEntry, error)

	// List retrieves entries, newest first, with pagination.
	// Returns items, total count, and error.
	List(ctx context.Context, limit, offset int) ([]*model.QueryHistoryEntry, int, error)

	// UpdateFeedback sets the user feedback on an entry
	UpdateFeedback(ctx context.Context, id types.QueryID, feedback string) error
}

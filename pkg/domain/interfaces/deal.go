package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// DealRepository defines the interface for Deal data access
type DealRepository interface {
	// Create creates a new deal with auto-generated ID. The eight
	// MEDDPICC elements are created alongside, all status=unknown.
	Create(ctx context.Context, deal *model.Deal) (*model.Deal, error)

	// Get retrieves a deal by ID
	Get(ctx context.Context, id types.DealID) (*model.Deal, error)

	// List retrieves all deals
	List(ctx context.Context) ([]*model.Deal, error)

	// Update updates an existing deal
	Update(ctx context.Context, deal *model.Deal) (*model.Deal, error)

	// Delete deletes a deal by ID, cascading to its MEDDPICC elements
	// and segment joins. Segments survive.
	Delete(ctx context.Context, id types.DealID) error
}

// MeddpiccRepository defines the interface for MEDDPICC element access.
// Elements are created by DealRepository.Create; this interface only
// reads and updates them.
type MeddpiccRepository interface {
	// ListByDeal retrieves the eight elements of a deal in canonical
	// letter order
	ListByDeal(ctx context.Context, dealID types.DealID) ([]*model.MeddpiccElement, error)

	// Get retrieves one element by (deal, letter)
	Get(ctx context.Context, dealID types.DealID, letter types.MeddpiccLetter) (*model.MeddpiccElement, error)

	// Update updates one element in place
	Update(ctx context.Context, element *model.MeddpiccElement) (*model.MeddpiccElement, error)
}

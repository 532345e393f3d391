package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// ProspectRepository defines the interface for Prospect data access,
// including signals and contacts owned by the prospect.
type ProspectRepository interface {
	// Create creates a new prospect with auto-generated ID
	Create(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error)

	// Get retrieves a prospect by ID
	Get(ctx context.Context, id types.ProspectID) (*model.Prospect, error)

	// List retrieves prospects, optionally filtered by status
	// (empty status means all)
	List(ctx context.Context, status types.ProspectStatus) ([]*model.Prospect, error)

	// Update updates an existing prospect
	Update(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error)

	// Delete deletes a prospect by ID, cascading to its signals,
	// contacts, and outreach entries
	Delete(ctx context.Context, id types.ProspectID) error

	// AddSignal attaches a signal to a prospect
	AddSignal(ctx context.Context, signal *model.ProspectSignal) (*model.ProspectSignal, error)

	// RemoveSignal removes a signal by its numeric ID
	RemoveSignal(ctx context.Context, prospectID types.ProspectID, signalID int64) error

	// ListSignals retrieves all signals of a prospect
	ListSignals(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectSignal, error)

	// CreateContact creates a contact under a prospect
	CreateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error)

	// ListContacts retrieves all contacts of a prospect
	ListContacts(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectContact, error)

	// UpdateContact updates an existing contact
	UpdateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error)

	// DeleteContact deletes a contact by ID
	DeleteContact(ctx context.Context, id types.ContactID) error
}

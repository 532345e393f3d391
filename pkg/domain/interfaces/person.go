package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// PersonRepository defines the interface for Person data access
type PersonRepository interface {
	// Create creates a new person with auto-generated ID
	Create(ctx context.Context, person *model.Person) (*model.Person, error)

	// Get retrieves a person by ID
	Get(ctx context.Context, id types.PersonID) (*model.Person, error)

	// List retrieves all people
	List(ctx context.Context) ([]*model.Person, error)

	// Update updates an existing person
	Update(ctx context.Context, person *model.Person) (*model.Person, error)

	// Delete deletes a person by ID. Segment joins are removed but the
	// segments themselves survive.
	Delete(ctx context.Context, id types.PersonID) error
}

package interfaces

import (
	"context"
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
)

// OutcomeRepository defines the interface for outcome observations
type OutcomeRepository interface {
	// Create records a new outcome
	Create(ctx context.Context, outcome *model.Outcome) (*model.Outcome, error)

	// List retrieves outcomes, newest first, capped at limit
	// (limit <= 0 means all)
	List(ctx context.Context, limit int) ([]*model.Outcome, error)

	// CountSince counts outcomes recorded at or after the given time
	CountSince(ctx context.Context, since time.Time) (int, error)
}

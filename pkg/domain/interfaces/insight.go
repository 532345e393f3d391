package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// InsightFilter narrows an insight listing. Zero values mean "any".
type InsightFilter struct {
	Type          types.InsightType
	Category      string
	MinConfidence float64
	Status        types.InsightStatus
}

// InsightRepository defines the interface for Insight data access
type InsightRepository interface {
	// Create creates a new insight with auto-generated ID
	Create(ctx context.Context, insight *model.Insight) (*model.Insight, error)

	// Get retrieves an insight by ID
	Get(ctx context.Context, id types.InsightID) (*model.Insight, error)

	// List retrieves insights matching the filter, newest first
	List(ctx context.Context, filter InsightFilter) ([]*model.Insight, error)

	// Update updates an existing insight
	Update(ctx context.Context, insight *model.Insight) (*model.Insight, error)

	// GetActiveByType retrieves the single active insight of a type.
	// Returns nil, nil if none is active.
	GetActiveByType(ctx context.Context, t types.InsightType) (*model.Insight, error)

	// AppendSnapshot preserves a confidence/evidence snapshot
	AppendSnapshot(ctx context.Context, snapshot *model.InsightSnapshot) error

	// ListSnapshots retrieves snapshots for an insight, oldest first
	ListSnapshots(ctx context.Context, insightID types.InsightID) ([]*model.InsightSnapshot, error)
}

// SignalWeightRepository defines the interface for calibrated weights
type SignalWeightRepository interface {
	// Get retrieves the weight record for a signal type.
	// Returns nil, nil if the type has no record.
	Get(ctx context.Context, signalType string) (*model.SignalWeight, error)

	// Upsert creates or replaces a weight record
	Upsert(ctx context.Context, weight *model.SignalWeight) error

	// List retrieves all weight records
	List(ctx context.Context) ([]*model.SignalWeight, error)
}

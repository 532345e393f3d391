package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// SectionRepository defines the interface for living section storage
type SectionRepository interface {
	// Get retrieves a section by its composite key.
	// Returns nil, nil if the section has never been generated.
	Get(ctx context.Context, entityType types.EntityType, entityID string, sectionType types.SectionType) (*model.LivingSection, error)

	// Upsert creates or replaces a section row
	Upsert(ctx context.Context, section *model.LivingSection) error

	// MarkStale flags every section of an entity as stale.
	// Rows remain readable.
	MarkStale(ctx context.Context, entityType types.EntityType, entityID string) error

	// ListByEntity retrieves all stored sections of an entity
	ListByEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.LivingSection, error)
}

// MetricsRepository defines the interface for call metrics storage
type MetricsRepository interface {
	// Upsert creates or replaces the metrics of a source
	Upsert(ctx context.Context, metrics *model.CallMetrics) error

	// GetBySource retrieves the metrics of a source.
	// Returns nil, nil if the source has no metrics.
	GetBySource(ctx context.Context, sourceID types.SourceID) (*model.CallMetrics, error)

	// List retrieves all stored metrics, newest first
	List(ctx context.Context) ([]*model.CallMetrics, error)
}

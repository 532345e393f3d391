package interfaces

import (
	"context"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// SegmentRepository defines the interface for Segment data access
type SegmentRepository interface {
	// ReplaceForSource atomically replaces all segments of a source:
	// prior segments (and their entity joins) are deleted before the
	// new set is inserted. Returns the stored segments with IDs set.
	ReplaceForSource(ctx context.Context, sourceID types.SourceID, segments []*model.Segment) ([]*model.Segment, error)

	// Get retrieves a segment by ID
	Get(ctx context.Context, id types.SegmentID) (*model.Segment, error)

	// Update updates a segment's classification fields in place
	Update(ctx context.Context, segment *model.Segment) (*model.Segment, error)

	// ListBySource retrieves all segments of a source in position order
	ListBySource(ctx context.Context, sourceID types.SourceID) ([]*model.Segment, error)

	// ListByKnowledgeType retrieves segments of the given knowledge types,
	// newest first, capped at limit
	ListByKnowledgeType(ctx context.Context, kinds []types.KnowledgeType, limit int) ([]*model.Segment, error)

	// ListByTag retrieves segments carrying the given tag, capped at limit
	ListByTag(ctx context.Context, tag string, limit int) ([]*model.Segment, error)

	// Search retrieves segments whose content matches the keyword
	// (case-insensitive substring), capped at limit
	Search(ctx context.Context, keyword string, limit int) ([]*model.Segment, error)

	// LinkPerson records a segment-person join (idempotent)
	LinkPerson(ctx context.Context, link *model.SegmentPersonLink) error

	// LinkDeal records a segment-deal join (idempotent)
	LinkDeal(ctx context.Context, link *model.SegmentDealLink) error

	// ListByPerson retrieves segments joined to a person, capped at limit
	ListByPerson(ctx context.Context, personID types.PersonID, limit int) ([]*model.Segment, error)

	// ListByDeal retrieves segments joined to a deal, capped at limit
	ListByDeal(ctx context.Context, dealID types.DealID, limit int) ([]*model.Segment, error)
}

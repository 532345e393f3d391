package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type segmentRepository struct {
	mu          sync.RWMutex
	segments    map[types.SegmentID]*model.Segment
	personLinks map[types.SegmentID]map[types.PersonID]string
	dealLinks   map[types.SegmentID]map[types.DealID]struct{}
}

func newSegmentRepository() *segmentRepository {
	return &segmentRepository{
		segments:    make(map[types.SegmentID]*model.Segment),
		personLinks: make(map[types.SegmentID]map[types.PersonID]string),
		dealLinks:   make(map[types.SegmentID]map[types.DealID]struct{}),
	}
}

func copySegment(segment *model.Segment) *model.Segment {
	copied := *segment
	if segment.Tags != nil {
		copied.Tags = append([]string{}, segment.Tags...)
	}
	return &copied
}

func (r *segmentRepository) ReplaceForSource(ctx context.Context, sourceID types.SourceID, segments []*model.Segment) ([]*model.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Clear-then-insert: no survivors from prior runs
	for id, segment := range r.segments {
		if segment.SourceID == sourceID {
			delete(r.segments, id)
			delete(r.personLinks, id)
			delete(r.dealLinks, id)
		}
	}

	now := time.Now().UTC()
	stored := make([]*model.Segment, 0, len(segments))
	for i, segment := range segments {
		created := copySegment(segment)
		if created.ID == "" {
			created.ID = types.NewSegmentID()
		}
		created.SourceID = sourceID
		created.Position = i
		created.CreatedAt = now
		r.segments[created.ID] = created
		stored = append(stored, copySegment(created))
	}

	return stored, nil
}

func (r *segmentRepository) Get(ctx context.Context, id types.SegmentID) (*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segment, exists := r.segments[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "segment not found", goerr.V("id", id))
	}

	return copySegment(segment), nil
}

func (r *segmentRepository) Update(ctx context.Context, segment *model.Segment) (*model.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.segments[segment.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "segment not found", goerr.V("id", segment.ID))
	}

	updated := copySegment(segment)
	updated.SourceID = existing.SourceID
	updated.Position = existing.Position
	updated.CreatedAt = existing.CreatedAt
	r.segments[segment.ID] = updated

	return copySegment(updated), nil
}

func (r *segmentRepository) ListBySource(ctx context.Context, sourceID types.SourceID) ([]*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := make([]*model.Segment, 0)
	for _, segment := range r.segments {
		if segment.SourceID == sourceID {
			segments = append(segments, copySegment(segment))
		}
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Position < segments[j].Position
	})

	return segments, nil
}

func (r *segmentRepository) ListByKnowledgeType(ctx context.Context, kinds []types.KnowledgeType, limit int) ([]*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[types.KnowledgeType]struct{}, len(kinds))
	for _, k := range kinds {
		wanted[k] = struct{}{}
	}

	segments := make([]*model.Segment, 0)
	for _, segment := range r.segments {
		if _, ok := wanted[segment.Knowledge]; ok {
			segments = append(segments, copySegment(segment))
		}
	}

	return capSegments(segments, limit), nil
}

func (r *segmentRepository) ListByTag(ctx context.Context, tag string, limit int) ([]*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := make([]*model.Segment, 0)
	for _, segment := range r.segments {
		if segment.HasTag(tag) {
			segments = append(segments, copySegment(segment))
		}
	}

	return capSegments(segments, limit), nil
}

func (r *segmentRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(keyword)
	segments := make([]*model.Segment, 0)
	for _, segment := range r.segments {
		if strings.Contains(strings.ToLower(segment.Content), needle) {
			segments = append(segments, copySegment(segment))
		}
	}

	return capSegments(segments, limit), nil
}

func (r *segmentRepository) LinkPerson(ctx context.Context, link *model.SegmentPersonLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.segments[link.SegmentID]; !exists {
		return goerr.Wrap(types.ErrNotFound, "segment not found", goerr.V("id", link.SegmentID))
	}

	links, ok := r.personLinks[link.SegmentID]
	if !ok {
		links = make(map[types.PersonID]string)
		r.personLinks[link.SegmentID] = links
	}
	links[link.PersonID] = link.Role

	return nil
}

func (r *segmentRepository) LinkDeal(ctx context.Context, link *model.SegmentDealLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.segments[link.SegmentID]; !exists {
		return goerr.Wrap(types.ErrNotFound, "segment not found", goerr.V("id", link.SegmentID))
	}

	links, ok := r.dealLinks[link.SegmentID]
	if !ok {
		links = make(map[types.DealID]struct{})
		r.dealLinks[link.SegmentID] = links
	}
	links[link.DealID] = struct{}{}

	return nil
}

func (r *segmentRepository) ListByPerson(ctx context.Context, personID types.PersonID, limit int) ([]*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := make([]*model.Segment, 0)
	for segmentID, links := range r.personLinks {
		if _, ok := links[personID]; ok {
			if segment, exists := r.segments[segmentID]; exists {
				segments = append(segments, copySegment(segment))
			}
		}
	}

	return capSegments(segments, limit), nil
}

func (r *segmentRepository) ListByDeal(ctx context.Context, dealID types.DealID, limit int) ([]*model.Segment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	segments := make([]*model.Segment, 0)
	for segmentID, links := range r.dealLinks {
		if _, ok := links[dealID]; ok {
			if segment, exists := r.segments[segmentID]; exists {
				segments = append(segments, copySegment(segment))
			}
		}
	}

	return capSegments(segments, limit), nil
}

// deleteBySource removes all segments and joins of a source (cascade)
func (r *segmentRepository) deleteBySource(sourceID types.SourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, segment := range r.segments {
		if segment.SourceID == sourceID {
			delete(r.segments, id)
			delete(r.personLinks, id)
			delete(r.dealLinks, id)
		}
	}
}

// unlinkPerson removes all joins of a person (entity deletion)
func (r *segmentRepository) unlinkPerson(personID types.PersonID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, links := range r.personLinks {
		delete(links, personID)
	}
}

// unlinkDeal removes all joins of a deal (entity deletion)
func (r *segmentRepository) unlinkDeal(dealID types.DealID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, links := range r.dealLinks {
		delete(links, dealID)
	}
}

func capSegments(segments []*model.Segment, limit int) []*model.Segment {
	sort.Slice(segments, func(i, j int) bool {
		if segments[i].CreatedAt.Equal(segments[j].CreatedAt) {
			return segments[i].Position < segments[j].Position
		}
		return segments[i].CreatedAt.After(segments[j].CreatedAt)
	})
	if limit > 0 && limit < len(segments) {
		segments = segments[:limit]
	}
	return segments
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type sourceRepository struct {
	mu      sync.RWMutex
	sources map[types.SourceID]*model.Source

	segments *segmentRepository
	metrics  *metricsRepository
}

func newSourceRepository(segments *segmentRepository, metrics *metricsRepository) *sourceRepository {
	return &sourceRepository{
		sources:  make(map[types.SourceID]*model.Source),
		segments: segments,
		metrics:  metrics,
	}
}

func copySource(source *model.Source) *model.Source {
	copied := *source
	if source.CallDate != nil {
		d := *source.CallDate
		copied.CallDate = &d
	}
	if source.ProcessedAt != nil {
		p := *source.ProcessedAt
		copied.ProcessedAt = &p
	}
	return &copied
}

func (r *sourceRepository) Create(ctx context.Context, source *model.Source) (*model.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.sources {
		if existing.Fingerprint == source.Fingerprint {
			return nil, goerr.Wrap(types.ErrInvalidInput, "source with same fingerprint already exists",
				goerr.V("fingerprint", source.Fingerprint),
				goerr.V("existing_id", existing.ID))
		}
	}

	now := time.Now().UTC()
	created := copySource(source)
	if created.ID == "" {
		created.ID = types.NewSourceID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.sources[created.ID] = created
	return copySource(created), nil
}

func (r *sourceRepository) Get(ctx context.Context, id types.SourceID) (*model.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.sources[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "source not found", goerr.V("id", id))
	}

	return copySource(source), nil
}

func (r *sourceRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, source := range r.sources {
		if source.Fingerprint == fingerprint {
			return copySource(source), nil
		}
	}

	return nil, nil
}

func (r *sourceRepository) List(ctx context.Context, limit, offset int) ([]*model.Source, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.Source, 0, len(r.sources))
	for _, source := range r.sources {
		all = append(all, copySource(source))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*model.Source{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, total, nil
}

func (r *sourceRepository) Update(ctx context.Context, source *model.Source) (*model.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.sources[source.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "source not found", goerr.V("id", source.ID))
	}

	updated := copySource(source)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.sources[updated.ID] = updated
	return copySource(updated), nil
}

func (r *sourceRepository) Delete(ctx context.Context, id types.SourceID) error {
	r.mu.Lock()
	if _, exists := r.sources[id]; !exists {
		r.mu.Unlock()
		return goerr.Wrap(types.ErrNotFound, "source not found", goerr.V("id", id))
	}
	delete(r.sources, id)
	r.mu.Unlock()

	// Cascade: segments (with joins) and metrics
	r.segments.deleteBySource(id)
	r.metrics.deleteBySource(id)

	return nil
}

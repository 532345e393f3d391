package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type sectionKey struct {
	entityType  types.EntityType
	entityID    string
	sectionType types.SectionType
}

type sectionRepository struct {
	mu       sync.RWMutex
	sections map[sectionKey]*model.LivingSection
}

func newSectionRepository() *sectionRepository {
	return &sectionRepository{
		sections: make(map[sectionKey]*model.LivingSection),
	}
}

func copySection(section *model.LivingSection) *model.LivingSection {
	copied := *section
	return &copied
}

func (r *sectionRepository) Get(ctx context.Context, entityType types.EntityType, entityID string, sectionType types.SectionType) (*model.LivingSection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	section, exists := r.sections[sectionKey{entityType, entityID, sectionType}]
	if !exists {
		return nil, nil
	}

	return copySection(section), nil
}

func (r *sectionRepository) Upsert(ctx context.Context, section *model.LivingSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copySection(section)
	if stored.GeneratedAt.IsZero() {
		stored.GeneratedAt = time.Now().UTC()
	}
	r.sections[sectionKey{stored.EntityType, stored.EntityID, stored.SectionType}] = stored

	return nil
}

func (r *sectionRepository) MarkStale(ctx context.Context, entityType types.EntityType, entityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, section := range r.sections {
		if key.entityType == entityType && key.entityID == entityID {
			section.Stale = true
		}
	}

	return nil
}

func (r *sectionRepository) ListByEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.LivingSection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sections := make([]*model.LivingSection, 0)
	for key, section := range r.sections {
		if key.entityType == entityType && key.entityID == entityID {
			sections = append(sections, copySection(section))
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].SectionType < sections[j].SectionType
	})

	return sections, nil
}

type metricsRepository struct {
	mu      sync.RWMutex
	metrics map[types.SourceID]*model.CallMetrics
}

func newMetricsRepository() *metricsRepository {
	return &metricsRepository{
		metrics: make(map[types.SourceID]*model.CallMetrics),
	}
}

func copyMetrics(metrics *model.CallMetrics) *model.CallMetrics {
	copied := *metrics
	if metrics.DiscoveryDepth != nil {
		copied.DiscoveryDepth = make(map[string]int, len(metrics.DiscoveryDepth))
		for k, v := range metrics.DiscoveryDepth {
			copied.DiscoveryDepth[k] = v
		}
	}
	if metrics.StrongMoments != nil {
		copied.StrongMoments = append([]string{}, metrics.StrongMoments...)
	}
	if metrics.ImprovementAreas != nil {
		copied.ImprovementAreas = append([]string{}, metrics.ImprovementAreas...)
	}
	return &copied
}

func (r *metricsRepository) Upsert(ctx context.Context, metrics *model.CallMetrics) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMetrics(metrics)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.metrics[stored.SourceID] = stored

	return nil
}

func (r *metricsRepository) GetBySource(ctx context.Context, sourceID types.SourceID) (*model.CallMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics, exists := r.metrics[sourceID]
	if !exists {
		return nil, nil
	}

	return copyMetrics(metrics), nil
}

func (r *metricsRepository) List(ctx context.Context) ([]*model.CallMetrics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.CallMetrics, 0, len(r.metrics))
	for _, metrics := range r.metrics {
		all = append(all, copyMetrics(metrics))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return all, nil
}

func (r *metricsRepository) deleteBySource(sourceID types.SourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.metrics, sourceID)
}

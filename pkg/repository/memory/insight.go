package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type insightRepository struct {
	mu             sync.RWMutex
	insights       map[types.InsightID]*model.Insight
	snapshots      map[types.InsightID][]*model.InsightSnapshot
	nextSnapshotID int64
}

func newInsightRepository() *insightRepository {
	return &insightRepository{
		insights:       make(map[types.InsightID]*model.Insight),
		snapshots:      make(map[types.InsightID][]*model.InsightSnapshot),
		nextSnapshotID: 1,
	}
}

func copyInsight(insight *model.Insight) *model.Insight {
	copied := *insight
	return &copied
}

func copySnapshot(snapshot *model.InsightSnapshot) *model.InsightSnapshot {
	copied := *snapshot
	return &copied
}

func (r *insightRepository) Create(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyInsight(insight)
	if created.ID == "" {
		created.ID = types.NewInsightID()
	}
	if created.Status == "" {
		created.Status = types.InsightActive
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.insights[created.ID] = created
	return copyInsight(created), nil
}

func (r *insightRepository) Get(ctx context.Context, id types.InsightID) (*model.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	insight, exists := r.insights[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "insight not found", goerr.V("id", id))
	}

	return copyInsight(insight), nil
}

func (r *insightRepository) List(ctx context.Context, filter interfaces.InsightFilter) ([]*model.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	insights := make([]*model.Insight, 0)
	for _, insight := range r.insights {
		if filter.Type != "" && insight.Type != filter.Type {
			continue
		}
		if filter.Category != "" && insight.Category != filter.Category {
			continue
		}
		if insight.Confidence < filter.MinConfidence {
			continue
		}
		if filter.Status != "" && insight.Status != filter.Status {
			continue
		}
		insights = append(insights, copyInsight(insight))
	}
	sort.Slice(insights, func(i, j int) bool {
		return insights[i].CreatedAt.After(insights[j].CreatedAt)
	})

	return insights, nil
}

func (r *insightRepository) Update(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.insights[insight.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "insight not found", goerr.V("id", insight.ID))
	}

	updated := copyInsight(insight)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.insights[updated.ID] = updated
	return copyInsight(updated), nil
}

func (r *insightRepository) GetActiveByType(ctx context.Context, t types.InsightType) (*model.Insight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var newest *model.Insight
	for _, insight := range r.insights {
		if insight.Type != t || insight.Status != types.InsightActive {
			continue
		}
		if newest == nil || insight.CreatedAt.After(newest.CreatedAt) {
			newest = insight
		}
	}
	if newest == nil {
		return nil, nil
	}

	return copyInsight(newest), nil
}

func (r *insightRepository) AppendSnapshot(ctx context.Context, snapshot *model.InsightSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.insights[snapshot.InsightID]; !exists {
		return goerr.Wrap(types.ErrNotFound, "insight not found", goerr.V("id", snapshot.InsightID))
	}

	stored := copySnapshot(snapshot)
	stored.ID = r.nextSnapshotID
	r.nextSnapshotID++
	if stored.RecordedAt.IsZero() {
		stored.RecordedAt = time.Now().UTC()
	}

	r.snapshots[snapshot.InsightID] = append(r.snapshots[snapshot.InsightID], stored)
	return nil
}

func (r *insightRepository) ListSnapshots(ctx context.Context, insightID types.InsightID) ([]*model.InsightSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]*model.InsightSnapshot, 0, len(r.snapshots[insightID]))
	for _, snapshot := range r.snapshots[insightID] {
		snapshots = append(snapshots, copySnapshot(snapshot))
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})

	return snapshots, nil
}

type signalWeightRepository struct {
	mu      sync.RWMutex
	weights map[string]*model.SignalWeight
}

func newSignalWeightRepository() *signalWeightRepository {
	return &signalWeightRepository{
		weights: make(map[string]*model.SignalWeight),
	}
}

func copyWeight(weight *model.SignalWeight) *model.SignalWeight {
	copied := *weight
	if weight.LearnedWeight != nil {
		w := *weight.LearnedWeight
		copied.LearnedWeight = &w
	}
	return &copied
}

func (r *signalWeightRepository) Get(ctx context.Context, signalType string) (*model.SignalWeight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weight, exists := r.weights[signalType]
	if !exists {
		return nil, nil
	}

	return copyWeight(weight), nil
}

func (r *signalWeightRepository) Upsert(ctx context.Context, weight *model.SignalWeight) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyWeight(weight)
	stored.UpdatedAt = time.Now().UTC()
	r.weights[stored.SignalType] = stored

	return nil
}

func (r *signalWeightRepository) List(ctx context.Context) ([]*model.SignalWeight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	weights := make([]*model.SignalWeight, 0, len(r.weights))
	for _, weight := range r.weights {
		weights = append(weights, copyWeight(weight))
	}
	sort.Slice(weights, func(i, j int) bool {
		return weights[i].SignalType < weights[j].SignalType
	})

	return weights, nil
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type outcomeRepository struct {
	mu       sync.RWMutex
	outcomes map[types.OutcomeID]*model.Outcome
}

func newOutcomeRepository() *outcomeRepository {
	return &outcomeRepository{
		outcomes: make(map[types.OutcomeID]*model.Outcome),
	}
}

func copyOutcome(outcome *model.Outcome) *model.Outcome {
	copied := *outcome
	return &copied
}

func (r *outcomeRepository) Create(ctx context.Context, outcome *model.Outcome) (*model.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyOutcome(outcome)
	if created.ID == "" {
		created.ID = types.NewOutcomeID()
	}
	if created.Date.IsZero() {
		created.Date = now
	}
	created.CreatedAt = now

	r.outcomes[created.ID] = created
	return copyOutcome(created), nil
}

func (r *outcomeRepository) List(ctx context.Context, limit int) ([]*model.Outcome, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	outcomes := make([]*model.Outcome, 0, len(r.outcomes))
	for _, outcome := range r.outcomes {
		outcomes = append(outcomes, copyOutcome(outcome))
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].CreatedAt.After(outcomes[j].CreatedAt)
	})
	if limit > 0 && limit < len(outcomes) {
		outcomes = outcomes[:limit]
	}

	return outcomes, nil
}

func (r *outcomeRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, outcome := range r.outcomes {
		if !outcome.CreatedAt.Before(since) {
			count++
		}
	}

	return count, nil
}

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

type queryHistoryRepository struct {
	mu      sync.RWMutex
	entries map[types.QueryID]*model.QueryHistoryEntry
}

func newQueryHistoryRepository() *queryHistoryRepository {
	return &queryHistoryRepository{
		entries: make(map[types.QueryID]*model.QueryHistoryEntry),
	}
}

func copyHistoryEntry(entry *model.QueryHistoryEntry) *model.QueryHistoryEntry {
	copied := *entry
	if entry.Sources != nil {
		copied.Sources = append([]model.ContextSource{}, entry.Sources...)
	}
	return &copied
}

func (r *queryHistoryRepository) Create(ctx context.Context, entry *model.QueryHistoryEntry) (*model.QueryHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyHistoryEntry(entry)
	if created.ID == "" {
		created.ID = types.NewQueryID()
	}
	created.CreatedAt = time.Now().UTC()

	r.entries[created.ID] = created
	return copyHistoryEntry(created), nil
}

func (r *queryHistoryRepository) Get(ctx context.Context, id types.QueryID) (*model.QueryHistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "query history entry not found", goerr.V("id", id))
	}

	return copyHistoryEntry(entry), nil
}

func (r *queryHistoryRepository) List(ctx context.Context, limit, offset int) ([]*model.QueryHistoryEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.QueryHistoryEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		all = append(all, copyHistoryEntry(entry))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*model.QueryHistoryEntry{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, total, nil
}

func (r *queryHistoryRepository) UpdateFeedback(ctx context.Context, id types.QueryID, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return goerr.Wrap(types.ErrNotFound, "query history entry not found", goerr.V("id", id))
	}
	entry.Feedback = feedback

	return nil
}

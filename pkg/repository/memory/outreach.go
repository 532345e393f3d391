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

type outreachRepository struct {
	mu      sync.RWMutex
	entries map[types.OutreachID]*model.OutreachEntry
}

func newOutreachRepository() *outreachRepository {
	return &outreachRepository{
		entries: make(map[types.OutreachID]*model.OutreachEntry),
	}
}

func copyOutreach(entry *model.OutreachEntry) *model.OutreachEntry {
	copied := *entry
	if entry.NextFollowup != nil {
		f := *entry.NextFollowup
		copied.NextFollowup = &f
	}
	return &copied
}

func (r *outreachRepository) Create(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyOutreach(entry)
	if created.ID == "" {
		created.ID = types.NewOutreachID()
	}
	created.Direction = created.Direction.Normalize()
	created.Outcome = created.Outcome.Normalize()
	if created.Date.IsZero() {
		created.Date = now
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.entries[created.ID] = created
	return copyOutreach(created), nil
}

func (r *outreachRepository) Get(ctx context.Context, id types.OutreachID) (*model.OutreachEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "outreach entry not found", goerr.V("id", id))
	}

	return copyOutreach(entry), nil
}

func (r *outreachRepository) List(ctx context.Context, filter interfaces.OutreachFilter) ([]*model.OutreachEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*model.OutreachEntry, 0)
	for _, entry := range r.entries {
		if filter.ProspectID != "" && entry.ProspectID != filter.ProspectID {
			continue
		}
		if filter.Method != "" && entry.Method != filter.Method {
			continue
		}
		if filter.Outcome != "" && entry.Outcome != filter.Outcome {
			continue
		}
		if !filter.From.IsZero() && entry.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && entry.Date.After(filter.To) {
			continue
		}
		entries = append(entries, copyOutreach(entry))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})

	return entries, nil
}

func (r *outreachRepository) Update(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.entries[entry.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "outreach entry not found", goerr.V("id", entry.ID))
	}

	updated := copyOutreach(entry)
	updated.ProspectID = existing.ProspectID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.entries[updated.ID] = updated
	return copyOutreach(updated), nil
}

func (r *outreachRepository) Delete(ctx context.Context, id types.OutreachID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; !exists {
		return goerr.Wrap(types.ErrNotFound, "outreach entry not found", goerr.V("id", id))
	}
	delete(r.entries, id)

	return nil
}

// deleteByProspect removes all entries of a prospect (cascade)
func (r *outreachRepository) deleteByProspect(prospectID types.ProspectID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, entry := range r.entries {
		if entry.ProspectID == prospectID {
			delete(r.entries, id)
		}
	}
}

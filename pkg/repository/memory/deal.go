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

type dealRepository struct {
	mu    sync.RWMutex
	deals map[types.DealID]*model.Deal

	meddpicc *meddpiccRepository
	segments *segmentRepository
}

func newDealRepository(meddpicc *meddpiccRepository, segments *segmentRepository) *dealRepository {
	return &dealRepository{
		deals:    make(map[types.DealID]*model.Deal),
		meddpicc: meddpicc,
		segments: segments,
	}
}

func copyDeal(deal *model.Deal) *model.Deal {
	copied := *deal
	if deal.ExpectedClose != nil {
		c := *deal.ExpectedClose
		copied.ExpectedClose = &c
	}
	return &copied
}

func (r *dealRepository) Create(ctx context.Context, deal *model.Deal) (*model.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyDeal(deal)
	if created.ID == "" {
		created.ID = types.NewDealID()
	}
	created.Status = created.Status.Normalize()
	if created.LastActivityAt.IsZero() {
		created.LastActivityAt = now
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.deals[created.ID] = created

	// Every deal owns exactly eight elements from birth
	r.meddpicc.createForDeal(created.ID)

	return copyDeal(created), nil
}

func (r *dealRepository) Get(ctx context.Context, id types.DealID) (*model.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deal, exists := r.deals[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "deal not found", goerr.V("id", id))
	}

	return copyDeal(deal), nil
}

func (r *dealRepository) List(ctx context.Context) ([]*model.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deals := make([]*model.Deal, 0, len(r.deals))
	for _, deal := range r.deals {
		deals = append(deals, copyDeal(deal))
	}
	sort.Slice(deals, func(i, j int) bool {
		return deals[i].LastActivityAt.After(deals[j].LastActivityAt)
	})

	return deals, nil
}

func (r *dealRepository) Update(ctx context.Context, deal *model.Deal) (*model.Deal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.deals[deal.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "deal not found", goerr.V("id", deal.ID))
	}

	updated := copyDeal(deal)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.deals[updated.ID] = updated
	return copyDeal(updated), nil
}

func (r *dealRepository) Delete(ctx context.Context, id types.DealID) error {
	r.mu.Lock()
	if _, exists := r.deals[id]; !exists {
		r.mu.Unlock()
		return goerr.Wrap(types.ErrNotFound, "deal not found", goerr.V("id", id))
	}
	delete(r.deals, id)
	r.mu.Unlock()

	// Cascade: elements; joins removed, segments survive
	r.meddpicc.deleteByDeal(id)
	r.segments.unlinkDeal(id)

	return nil
}

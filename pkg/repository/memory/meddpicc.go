package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type meddpiccRepository struct {
	mu       sync.RWMutex
	elements map[types.DealID]map[types.MeddpiccLetter]*model.MeddpiccElement
}

func newMeddpiccRepository() *meddpiccRepository {
	return &meddpiccRepository{
		elements: make(map[types.DealID]map[types.MeddpiccLetter]*model.MeddpiccElement),
	}
}

func copyElement(element *model.MeddpiccElement) *model.MeddpiccElement {
	copied := *element
	return &copied
}

// createForDeal seeds the eight unknown elements for a new deal
func (r *meddpiccRepository) createForDeal(dealID types.DealID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	elements := make(map[types.MeddpiccLetter]*model.MeddpiccElement)
	for _, element := range model.NewMeddpiccElements(dealID) {
		element.UpdatedAt = now
		elements[element.Letter] = element
	}
	r.elements[dealID] = elements
}

func (r *meddpiccRepository) deleteByDeal(dealID types.DealID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.elements, dealID)
}

func (r *meddpiccRepository) ListByDeal(ctx context.Context, dealID types.DealID) ([]*model.MeddpiccElement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elements, exists := r.elements[dealID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "deal has no MEDDPICC elements", goerr.V("deal_id", dealID))
	}

	ordered := make([]*model.MeddpiccElement, 0, len(elements))
	for _, letter := range types.AllMeddpiccLetters() {
		if element, ok := elements[letter]; ok {
			ordered = append(ordered, copyElement(element))
		}
	}

	return ordered, nil
}

func (r *meddpiccRepository) Get(ctx context.Context, dealID types.DealID, letter types.MeddpiccLetter) (*model.MeddpiccElement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	elements, exists := r.elements[dealID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "deal has no MEDDPICC elements", goerr.V("deal_id", dealID))
	}

	element, ok := elements[letter]
	if !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "MEDDPICC element not found",
			goerr.V("deal_id", dealID), goerr.V("letter", letter))
	}

	return copyElement(element), nil
}

func (r *meddpiccRepository) Update(ctx context.Context, element *model.MeddpiccElement) (*model.MeddpiccElement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elements, exists := r.elements[element.DealID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "deal has no MEDDPICC elements", goerr.V("deal_id", element.DealID))
	}
	if _, ok := elements[element.Letter]; !ok {
		return nil, goerr.Wrap(types.ErrNotFound, "MEDDPICC element not found",
			goerr.V("deal_id", element.DealID), goerr.V("letter", element.Letter))
	}

	updated := copyElement(element)
	updated.UpdatedAt = time.Now().UTC()
	elements[updated.Letter] = updated

	return copyElement(updated), nil
}

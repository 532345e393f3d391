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

type prospectRepository struct {
	mu           sync.RWMutex
	prospects    map[types.ProspectID]*model.Prospect
	signals      map[types.ProspectID][]*model.ProspectSignal
	contacts     map[types.ContactID]*model.ProspectContact
	nextSignalID int64

	outreach *outreachRepository
}

func newProspectRepository(outreach *outreachRepository) *prospectRepository {
	return &prospectRepository{
		prospects:    make(map[types.ProspectID]*model.Prospect),
		signals:      make(map[types.ProspectID][]*model.ProspectSignal),
		contacts:     make(map[types.ContactID]*model.ProspectContact),
		nextSignalID: 1,
		outreach:     outreach,
	}
}

func copyProspect(prospect *model.Prospect) *model.Prospect {
	copied := *prospect
	return &copied
}

func copySignal(signal *model.ProspectSignal) *model.ProspectSignal {
	copied := *signal
	return &copied
}

func copyContact(contact *model.ProspectContact) *model.ProspectContact {
	copied := *contact
	return &copied
}

func (r *prospectRepository) Create(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyProspect(prospect)
	if created.ID == "" {
		created.ID = types.NewProspectID()
	}
	created.Status = created.Status.Normalize()
	if !created.Tier.IsValid() {
		created.Tier = types.Tier3
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.prospects[created.ID] = created
	return copyProspect(created), nil
}

func (r *prospectRepository) Get(ctx context.Context, id types.ProspectID) (*model.Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prospect, exists := r.prospects[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", id))
	}

	return copyProspect(prospect), nil
}

func (r *prospectRepository) List(ctx context.Context, status types.ProspectStatus) ([]*model.Prospect, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prospects := make([]*model.Prospect, 0, len(r.prospects))
	for _, prospect := range r.prospects {
		if status != "" && prospect.Status != status {
			continue
		}
		prospects = append(prospects, copyProspect(prospect))
	}
	sort.Slice(prospects, func(i, j int) bool {
		if prospects[i].Score == prospects[j].Score {
			return prospects[i].CompanyName < prospects[j].CompanyName
		}
		return prospects[i].Score > prospects[j].Score
	})

	return prospects, nil
}

func (r *prospectRepository) Update(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.prospects[prospect.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", prospect.ID))
	}

	updated := copyProspect(prospect)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.prospects[updated.ID] = updated
	return copyProspect(updated), nil
}

func (r *prospectRepository) Delete(ctx context.Context, id types.ProspectID) error {
	r.mu.Lock()
	if _, exists := r.prospects[id]; !exists {
		r.mu.Unlock()
		return goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", id))
	}
	delete(r.prospects, id)
	delete(r.signals, id)
	for contactID, contact := range r.contacts {
		if contact.ProspectID == id {
			delete(r.contacts, contactID)
		}
	}
	r.mu.Unlock()

	r.outreach.deleteByProspect(id)

	return nil
}

func (r *prospectRepository) AddSignal(ctx context.Context, signal *model.ProspectSignal) (*model.ProspectSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prospects[signal.ProspectID]; !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", signal.ProspectID))
	}

	created := copySignal(signal)
	created.ID = r.nextSignalID
	r.nextSignalID++
	created.CreatedAt = time.Now().UTC()

	r.signals[signal.ProspectID] = append(r.signals[signal.ProspectID], created)
	return copySignal(created), nil
}

func (r *prospectRepository) RemoveSignal(ctx context.Context, prospectID types.ProspectID, signalID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	signals := r.signals[prospectID]
	for i, signal := range signals {
		if signal.ID == signalID {
			r.signals[prospectID] = append(signals[:i], signals[i+1:]...)
			return nil
		}
	}

	return goerr.Wrap(types.ErrNotFound, "signal not found",
		goerr.V("prospect_id", prospectID), goerr.V("signal_id", signalID))
}

func (r *prospectRepository) ListSignals(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectSignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	signals := make([]*model.ProspectSignal, 0, len(r.signals[prospectID]))
	for _, signal := range r.signals[prospectID] {
		signals = append(signals, copySignal(signal))
	}

	return signals, nil
}

func (r *prospectRepository) CreateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prospects[contact.ProspectID]; !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", contact.ProspectID))
	}

	now := time.Now().UTC()
	created := copyContact(contact)
	if created.ID == "" {
		created.ID = types.NewContactID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.contacts[created.ID] = created
	return copyContact(created), nil
}

func (r *prospectRepository) ListContacts(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contacts := make([]*model.ProspectContact, 0)
	for _, contact := range r.contacts {
		if contact.ProspectID == prospectID {
			contacts = append(contacts, copyContact(contact))
		}
	}
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].Name < contacts[j].Name
	})

	return contacts, nil
}

func (r *prospectRepository) UpdateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.contacts[contact.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "contact not found", goerr.V("id", contact.ID))
	}

	updated := copyContact(contact)
	updated.ProspectID = existing.ProspectID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.contacts[updated.ID] = updated
	return copyContact(updated), nil
}

func (r *prospectRepository) DeleteContact(ctx context.Context, id types.ContactID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contacts[id]; !exists {
		return goerr.Wrap(types.ErrNotFound, "contact not found", goerr.V("id", id))
	}
	delete(r.contacts, id)

	return nil
}

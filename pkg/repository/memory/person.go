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

type personRepository struct {
	mu     sync.RWMutex
	people map[types.PersonID]*model.Person

	segments *segmentRepository
}

func newPersonRepository(segments *segmentRepository) *personRepository {
	return &personRepository{
		people:   make(map[types.PersonID]*model.Person),
		segments: segments,
	}
}

func copyPerson(person *model.Person) *model.Person {
	copied := *person
	return &copied
}

func (r *personRepository) Create(ctx context.Context, person *model.Person) (*model.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyPerson(person)
	if created.ID == "" {
		created.ID = types.NewPersonID()
	}
	created.Relationship = created.Relationship.Normalize()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.people[created.ID] = created
	return copyPerson(created), nil
}

func (r *personRepository) Get(ctx context.Context, id types.PersonID) (*model.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	person, exists := r.people[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "person not found", goerr.V("id", id))
	}

	return copyPerson(person), nil
}

func (r *personRepository) List(ctx context.Context) ([]*model.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	people := make([]*model.Person, 0, len(r.people))
	for _, person := range r.people {
		people = append(people, copyPerson(person))
	}
	sort.Slice(people, func(i, j int) bool {
		return people[i].Name < people[j].Name
	})

	return people, nil
}

func (r *personRepository) Update(ctx context.Context, person *model.Person) (*model.Person, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.people[person.ID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "person not found", goerr.V("id", person.ID))
	}

	updated := copyPerson(person)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.people[updated.ID] = updated
	return copyPerson(updated), nil
}

func (r *personRepository) Delete(ctx context.Context, id types.PersonID) error {
	r.mu.Lock()
	if _, exists := r.people[id]; !exists {
		r.mu.Unlock()
		return goerr.Wrap(types.ErrNotFound, "person not found", goerr.V("id", id))
	}
	delete(r.people, id)
	r.mu.Unlock()

	// Joins are removed; segments survive
	r.segments.unlinkPerson(id)

	return nil
}

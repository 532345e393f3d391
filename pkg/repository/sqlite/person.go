package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type personRepository struct {
	db *sql.DB
}

const personColumns = `id, name, role, company, relationship, notes, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (*model.Person, error) {
	var p model.Person
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.Role, &p.Company, &p.Relationship,
		&p.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *personRepository) Create(ctx context.Context, person *model.Person) (*model.Person, error) {
	id := person.ID
	if id == "" {
		id = types.NewPersonID()
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO people (`+personColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, person.Name, person.Role, person.Company,
		person.Relationship.Normalize(), person.Notes, now, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert person")
	}

	return r.Get(ctx, id)
}

func (r *personRepository) Get(ctx context.Context, id types.PersonID) (*model.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	person, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "person not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get person")
	}
	return person, nil
}

func (r *personRepository) List(ctx context.Context) ([]*model.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM people ORDER BY name`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list people")
	}
	defer rows.Close()

	people := make([]*model.Person, 0)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan person")
		}
		people = append(people, person)
	}

	return people, rows.Err()
}

func (r *personRepository) Update(ctx context.Context, person *model.Person) (*model.Person, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE people SET
		name = ?, role = ?, company = ?, relationship = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		person.Name, person.Role, person.Company, person.Relationship.Normalize(),
		person.Notes, formatTime(time.Now()), person.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update person")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "person not found", goerr.V("id", person.ID))
	}

	return r.Get(ctx, person.ID)
}

func (r *personRepository) Delete(ctx context.Context, id types.PersonID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete person")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "person not found", goerr.V("id", id))
	}
	return nil
}

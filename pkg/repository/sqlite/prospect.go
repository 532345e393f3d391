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

type prospectRepository struct {
	db *sql.DB
}

const prospectColumns = `id, company_name, industry, employee_count, location,
	website, tier, score, status, notes, converted_deal_id, created_at, updated_at`

func scanProspect(row interface{ Scan(...any) error }) (*model.Prospect, error) {
	var p model.Prospect
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.CompanyName, &p.Industry, &p.EmployeeCount,
		&p.Location, &p.Website, &p.Tier, &p.Score, &p.Status, &p.Notes,
		&p.ConvertedDealID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *prospectRepository) Create(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error) {
	id := prospect.ID
	if id == "" {
		id = types.NewProspectID()
	}
	tier := prospect.Tier
	if !tier.IsValid() {
		tier = types.Tier3
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO prospects (`+prospectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, prospect.CompanyName, prospect.Industry, prospect.EmployeeCount,
		prospect.Location, prospect.Website, tier, prospect.Score,
		prospect.Status.Normalize(), prospect.Notes, prospect.ConvertedDealID,
		now, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert prospect")
	}

	return r.Get(ctx, id)
}

func (r *prospectRepository) Get(ctx context.Context, id types.ProspectID) (*model.Prospect, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
	prospect, err := scanProspect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get prospect")
	}
	return prospect, nil
}

func (r *prospectRepository) List(ctx context.Context, status types.ProspectStatus) ([]*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY score DESC, company_name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list prospects")
	}
	defer rows.Close()

	prospects := make([]*model.Prospect, 0)
	for rows.Next() {
		prospect, err := scanProspect(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan prospect")
		}
		prospects = append(prospects, prospect)
	}

	return prospects, rows.Err()
}

func (r *prospectRepository) Update(ctx context.Context, prospect *model.Prospect) (*model.Prospect, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE prospects SET
		company_name = ?, industry = ?, employee_count = ?, location = ?,
		website = ?, tier = ?, score = ?, status = ?, notes = ?,
		converted_deal_id = ?, updated_at = ?
		WHERE id = ?`,
		prospect.CompanyName, prospect.Industry, prospect.EmployeeCount,
		prospect.Location, prospect.Website, prospect.Tier, prospect.Score,
		prospect.Status.Normalize(), prospect.Notes, prospect.ConvertedDealID,
		formatTime(time.Now()), prospect.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update prospect")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", prospect.ID))
	}

	return r.Get(ctx, prospect.ID)
}

func (r *prospectRepository) Delete(ctx context.Context, id types.ProspectID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prospects WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete prospect")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "prospect not found", goerr.V("id", id))
	}
	return nil
}

func (r *prospectRepository) AddSignal(ctx context.Context, signal *model.ProspectSignal) (*model.ProspectSignal, error) {
	if _, err := r.Get(ctx, signal.ProspectID); err != nil {
		return nil, err
	}

	now := formatTime(time.Now())
	res, err := r.db.ExecContext(ctx, `INSERT INTO prospect_signals
		(prospect_id, signal_type, value, weight, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		signal.ProspectID, signal.SignalType, signal.Value, signal.Weight,
		signal.Source, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert prospect signal")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read signal id")
	}

	created := *signal
	created.ID = id
	created.CreatedAt = parseTime(now)
	return &created, nil
}

func (r *prospectRepository) RemoveSignal(ctx context.Context, prospectID types.ProspectID, signalID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM prospect_signals WHERE prospect_id = ? AND id = ?`,
		prospectID, signalID)
	if err != nil {
		return goerr.Wrap(err, "failed to delete prospect signal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "signal not found",
			goerr.V("prospect_id", prospectID), goerr.V("signal_id", signalID))
	}
	return nil
}

func (r *prospectRepository) ListSignals(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectSignal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, prospect_id, signal_type, value, weight, source, created_at
		FROM prospect_signals WHERE prospect_id = ? ORDER BY id`, prospectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list prospect signals")
	}
	defer rows.Close()

	signals := make([]*model.ProspectSignal, 0)
	for rows.Next() {
		var s model.ProspectSignal
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ProspectID, &s.SignalType, &s.Value,
			&s.Weight, &s.Source, &createdAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan prospect signal")
		}
		s.CreatedAt = parseTime(createdAt)
		signals = append(signals, &s)
	}

	return signals, rows.Err()
}

const contactColumns = `id, prospect_id, name, role, email, phone, notes, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (*model.ProspectContact, error) {
	var c model.ProspectContact
	var createdAt, updatedAt string

	err := row.Scan(&c.ID, &c.ProspectID, &c.Name, &c.Role, &c.Email, &c.Phone,
		&c.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func (r *prospectRepository) CreateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error) {
	if _, err := r.Get(ctx, contact.ProspectID); err != nil {
		return nil, err
	}

	id := contact.ID
	if id == "" {
		id = types.NewContactID()
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO prospect_contacts (`+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, contact.ProspectID, contact.Name, contact.Role, contact.Email,
		contact.Phone, contact.Notes, now, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert prospect contact")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM prospect_contacts WHERE id = ?`, id)
	created, err := scanContact(row)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read created contact")
	}
	return created, nil
}

func (r *prospectRepository) ListContacts(ctx context.Context, prospectID types.ProspectID) ([]*model.ProspectContact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM prospect_contacts WHERE prospect_id = ? ORDER BY name`,
		prospectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list prospect contacts")
	}
	defer rows.Close()

	contacts := make([]*model.ProspectContact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan prospect contact")
		}
		contacts = append(contacts, contact)
	}

	return contacts, rows.Err()
}

func (r *prospectRepository) UpdateContact(ctx context.Context, contact *model.ProspectContact) (*model.ProspectContact, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE prospect_contacts SET
		name = ?, role = ?, email = ?, phone = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		contact.Name, contact.Role, contact.Email, contact.Phone, contact.Notes,
		formatTime(time.Now()), contact.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update prospect contact")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "contact not found", goerr.V("id", contact.ID))
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM prospect_contacts WHERE id = ?`, contact.ID)
	updated, err := scanContact(row)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read updated contact")
	}
	return updated, nil
}

func (r *prospectRepository) DeleteContact(ctx context.Context, id types.ContactID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prospect_contacts WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete prospect contact")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "contact not found", goerr.V("id", id))
	}
	return nil
}

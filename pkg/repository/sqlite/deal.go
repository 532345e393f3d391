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

type dealRepository struct {
	db *sql.DB
}

const dealColumns = `id, company_name, status, value, currency, expected_close,
	notes, last_activity_at, created_at, updated_at`

func scanDeal(row interface{ Scan(...any) error }) (*model.Deal, error) {
	var d model.Deal
	var expectedClose sql.NullString
	var lastActivity, createdAt, updatedAt string

	err := row.Scan(&d.ID, &d.CompanyName, &d.Status, &d.Value, &d.Currency,
		&expectedClose, &d.Notes, &lastActivity, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	d.ExpectedClose = scanNullableTime(expectedClose)
	d.LastActivityAt = parseTime(lastActivity)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return &d, nil
}

func (r *dealRepository) Create(ctx context.Context, deal *model.Deal) (*model.Deal, error) {
	id := deal.ID
	if id == "" {
		id = types.NewDealID()
	}
	now := time.Now()
	lastActivity := deal.LastActivityAt
	if lastActivity.IsZero() {
		lastActivity = now
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin deal create tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO deals (`+dealColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, deal.CompanyName, deal.Status.Normalize(), deal.Value, deal.Currency,
		nullableTime(deal.ExpectedClose), deal.Notes, formatTime(lastActivity),
		formatTime(now), formatTime(now))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert deal")
	}

	// Every deal owns exactly eight elements from birth
	for _, element := range model.NewMeddpiccElements(id) {
		_, err = tx.ExecContext(ctx, `INSERT INTO meddpicc_elements
			(deal_id, letter, status, evidence, source_segment, confidence, updated_at)
			VALUES (?, ?, ?, '', '', 0, ?)`,
			id, element.Letter, element.Status, formatTime(now))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to seed MEDDPICC element",
				goerr.V("letter", element.Letter))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit deal create")
	}

	return r.Get(ctx, id)
}

func (r *dealRepository) Get(ctx context.Context, id types.DealID) (*model.Deal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+dealColumns+` FROM deals WHERE id = ?`, id)
	deal, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "deal not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get deal")
	}
	return deal, nil
}

func (r *dealRepository) List(ctx context.Context) ([]*model.Deal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dealColumns+` FROM deals ORDER BY last_activity_at DESC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list deals")
	}
	defer rows.Close()

	deals := make([]*model.Deal, 0)
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan deal")
		}
		deals = append(deals, deal)
	}

	return deals, rows.Err()
}

func (r *dealRepository) Update(ctx context.Context, deal *model.Deal) (*model.Deal, error) {
	lastActivity := deal.LastActivityAt
	if lastActivity.IsZero() {
		lastActivity = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `UPDATE deals SET
		company_name = ?, status = ?, value = ?, currency = ?, expected_close = ?,
		notes = ?, last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		deal.CompanyName, deal.Status.Normalize(), deal.Value, deal.Currency,
		nullableTime(deal.ExpectedClose), deal.Notes, formatTime(lastActivity),
		formatTime(time.Now()), deal.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update deal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "deal not found", goerr.V("id", deal.ID))
	}

	return r.Get(ctx, deal.ID)
}

func (r *dealRepository) Delete(ctx context.Context, id types.DealID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete deal")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "deal not found", goerr.V("id", id))
	}
	return nil
}

type meddpiccRepository struct {
	db *sql.DB
}

const elementColumns = `deal_id, letter, status, evidence, source_segment, confidence, updated_at`

func scanElement(row interface{ Scan(...any) error }) (*model.MeddpiccElement, error) {
	var e model.MeddpiccElement
	var updatedAt string

	err := row.Scan(&e.DealID, &e.Letter, &e.Status, &e.Evidence,
		&e.SourceSegment, &e.Confidence, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func (r *meddpiccRepository) ListByDeal(ctx context.Context, dealID types.DealID) ([]*model.MeddpiccElement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+elementColumns+` FROM meddpicc_elements WHERE deal_id = ?`, dealID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list MEDDPICC elements")
	}
	defer rows.Close()

	byLetter := make(map[types.MeddpiccLetter]*model.MeddpiccElement)
	for rows.Next() {
		element, err := scanElement(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan MEDDPICC element")
		}
		byLetter[element.Letter] = element
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate MEDDPICC elements")
	}
	if len(byLetter) == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "deal has no MEDDPICC elements", goerr.V("deal_id", dealID))
	}

	ordered := make([]*model.MeddpiccElement, 0, len(byLetter))
	for _, letter := range types.AllMeddpiccLetters() {
		if element, ok := byLetter[letter]; ok {
			ordered = append(ordered, element)
		}
	}

	return ordered, nil
}

func (r *meddpiccRepository) Get(ctx context.Context, dealID types.DealID, letter types.MeddpiccLetter) (*model.MeddpiccElement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+elementColumns+` FROM meddpicc_elements WHERE deal_id = ? AND letter = ?`,
		dealID, letter)
	element, err := scanElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "MEDDPICC element not found",
			goerr.V("deal_id", dealID), goerr.V("letter", letter))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get MEDDPICC element")
	}
	return element, nil
}

func (r *meddpiccRepository) Update(ctx context.Context, element *model.MeddpiccElement) (*model.MeddpiccElement, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE meddpicc_elements SET
		status = ?, evidence = ?, source_segment = ?, confidence = ?, updated_at = ?
		WHERE deal_id = ? AND letter = ?`,
		element.Status, element.Evidence, element.SourceSegment, element.Confidence,
		formatTime(time.Now()), element.DealID, element.Letter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update MEDDPICC element")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "MEDDPICC element not found",
			goerr.V("deal_id", element.DealID), goerr.V("letter", element.Letter))
	}

	return r.Get(ctx, element.DealID, element.Letter)
}

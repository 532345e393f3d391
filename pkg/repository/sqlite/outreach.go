package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type outreachRepository struct {
	db *sql.DB
}

const outreachColumns = `id, prospect_id, date, method, direction, outcome,
	notes, next_followup, created_at, updated_at`

func scanOutreach(row interface{ Scan(...any) error }) (*model.OutreachEntry, error) {
	var e model.OutreachEntry
	var date, createdAt, updatedAt string
	var nextFollowup sql.NullString

	err := row.Scan(&e.ID, &e.ProspectID, &date, &e.Method, &e.Direction,
		&e.Outcome, &e.Notes, &nextFollowup, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.Date = parseTime(date)
	e.NextFollowup = scanNullableTime(nextFollowup)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func (r *outreachRepository) Create(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error) {
	id := entry.ID
	if id == "" {
		id = types.NewOutreachID()
	}
	date := entry.Date
	if date.IsZero() {
		date = time.Now()
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO outreach_entries (`+outreachColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.ProspectID, formatTime(date), entry.Method,
		entry.Direction.Normalize(), entry.Outcome.Normalize(), entry.Notes,
		nullableTime(entry.NextFollowup), now, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert outreach entry")
	}

	return r.Get(ctx, id)
}

func (r *outreachRepository) Get(ctx context.Context, id types.OutreachID) (*model.OutreachEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outreachColumns+` FROM outreach_entries WHERE id = ?`, id)
	entry, err := scanOutreach(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "outreach entry not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get outreach entry")
	}
	return entry, nil
}

func (r *outreachRepository) List(ctx context.Context, filter interfaces.OutreachFilter) ([]*model.OutreachEntry, error) {
	query := `SELECT ` + outreachColumns + ` FROM outreach_entries WHERE 1=1`
	args := []any{}
	if filter.ProspectID != "" {
		query += ` AND prospect_id = ?`
		args = append(args, filter.ProspectID)
	}
	if filter.Method != "" {
		query += ` AND method = ?`
		args = append(args, filter.Method)
	}
	if filter.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, filter.Outcome)
	}
	if !filter.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatTime(filter.To))
	}
	query += ` ORDER BY date DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list outreach entries")
	}
	defer rows.Close()

	entries := make([]*model.OutreachEntry, 0)
	for rows.Next() {
		entry, err := scanOutreach(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan outreach entry")
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *outreachRepository) Update(ctx context.Context, entry *model.OutreachEntry) (*model.OutreachEntry, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE outreach_entries SET
		date = ?, method = ?, direction = ?, outcome = ?, notes = ?,
		next_followup = ?, updated_at = ?
		WHERE id = ?`,
		formatTime(entry.Date), entry.Method, entry.Direction.Normalize(),
		entry.Outcome.Normalize(), entry.Notes, nullableTime(entry.NextFollowup),
		formatTime(time.Now()), entry.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update outreach entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "outreach entry not found", goerr.V("id", entry.ID))
	}

	return r.Get(ctx, entry.ID)
}

func (r *outreachRepository) Delete(ctx context.Context, id types.OutreachID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outreach_entries WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete outreach entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "outreach entry not found", goerr.V("id", id))
	}
	return nil
}

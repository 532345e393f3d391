package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type outcomeRepository struct {
	db *sql.DB
}

const outcomeColumns = `id, entity_type, entity_id, outcome_type, date, value, context, created_at`

func scanOutcome(row interface{ Scan(...any) error }) (*model.Outcome, error) {
	var o model.Outcome
	var date, createdAt string

	err := row.Scan(&o.ID, &o.EntityType, &o.EntityID, &o.OutcomeType, &date,
		&o.Value, &o.Context, &createdAt)
	if err != nil {
		return nil, err
	}

	o.Date = parseTime(date)
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}

func (r *outcomeRepository) Create(ctx context.Context, outcome *model.Outcome) (*model.Outcome, error) {
	id := outcome.ID
	if id == "" {
		id = types.NewOutcomeID()
	}
	date := outcome.Date
	if date.IsZero() {
		date = time.Now()
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO outcomes (`+outcomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, outcome.EntityType, outcome.EntityID, outcome.OutcomeType,
		formatTime(date), outcome.Value, outcome.Context, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert outcome")
	}

	created := *outcome
	created.ID = id
	created.Date = parseTime(formatTime(date))
	created.CreatedAt = parseTime(now)
	return &created, nil
}

func (r *outcomeRepository) List(ctx context.Context, limit int) ([]*model.Outcome, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outcomeColumns+` FROM outcomes ORDER BY created_at DESC, id LIMIT ?`,
		limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list outcomes")
	}
	defer rows.Close()

	outcomes := make([]*model.Outcome, 0)
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan outcome")
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}

func (r *outcomeRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outcomes WHERE created_at >= ?`,
		formatTime(since)).Scan(&count)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count outcomes")
	}
	return count, nil
}

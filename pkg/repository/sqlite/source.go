package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type sourceRepository struct {
	db *sql.DB
}

const sourceColumns = `id, filename, filepath, content, fingerprint, call_date,
	duration_min, context, summary, processed_at, created_at, updated_at`

func scanSource(row interface{ Scan(...any) error }) (*model.Source, error) {
	var s model.Source
	var callDate, processedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Filename, &s.Filepath, &s.Content, &s.Fingerprint,
		&callDate, &s.DurationMin, &s.Context, &s.Summary, &processedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.CallDate = scanNullableTime(callDate)
	s.ProcessedAt = scanNullableTime(processedAt)
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (r *sourceRepository) Create(ctx context.Context, source *model.Source) (*model.Source, error) {
	id := source.ID
	if id == "" {
		id = types.NewSourceID()
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO sources (`+sourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source.Filename, source.Filepath, source.Content, source.Fingerprint,
		nullableTime(source.CallDate), source.DurationMin, source.Context,
		source.Summary, nullableTime(source.ProcessedAt), now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, goerr.Wrap(types.ErrInvalidInput, "source with same fingerprint already exists",
				goerr.V("fingerprint", source.Fingerprint))
		}
		return nil, goerr.Wrap(err, "failed to insert source")
	}

	return r.Get(ctx, id)
}

func (r *sourceRepository) Get(ctx context.Context, id types.SourceID) (*model.Source, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "source not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get source")
	}
	return source, nil
}

func (r *sourceRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*model.Source, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE fingerprint = ?`, fingerprint)
	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get source by fingerprint")
	}
	return source, nil
}

func (r *sourceRepository) List(ctx context.Context, limit, offset int) ([]*model.Source, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sources`).Scan(&total); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count sources")
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list sources")
	}
	defer rows.Close()

	sources := make([]*model.Source, 0)
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to scan source")
		}
		sources = append(sources, source)
	}

	return sources, total, rows.Err()
}

func (r *sourceRepository) Update(ctx context.Context, source *model.Source) (*model.Source, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sources SET
		filename = ?, filepath = ?, content = ?, fingerprint = ?, call_date = ?,
		duration_min = ?, context = ?, summary = ?, processed_at = ?, updated_at = ?
		WHERE id = ?`,
		source.Filename, source.Filepath, source.Content, source.Fingerprint,
		nullableTime(source.CallDate), source.DurationMin, source.Context,
		source.Summary, nullableTime(source.ProcessedAt), formatTime(time.Now()),
		source.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update source")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "source not found", goerr.V("id", source.ID))
	}

	return r.Get(ctx, source.ID)
}

func (r *sourceRepository) Delete(ctx context.Context, id types.SourceID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete source")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "source not found", goerr.V("id", id))
	}
	return nil
}

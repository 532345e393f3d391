package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

type queryHistoryRepository struct {
	db *sql.DB
}

const queryHistoryColumns = `id, query, intent, response, sources, latency_ms, feedback, created_at`

func scanQueryHistory(row interface{ Scan(...any) error }) (*model.QueryHistoryEntry, error) {
	var e model.QueryHistoryEntry
	var sources, createdAt string

	err := row.Scan(&e.ID, &e.Query, &e.Intent, &e.Response, &sources,
		&e.LatencyMS, &e.Feedback, &createdAt)
	if err != nil {
		return nil, err
	}

	if sources != "" {
		if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil {
			return nil, goerr.Wrap(err, "failed to decode query sources")
		}
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (r *queryHistoryRepository) Create(ctx context.Context, entry *model.QueryHistoryEntry) (*model.QueryHistoryEntry, error) {
	id := entry.ID
	if id == "" {
		id = types.NewQueryID()
	}
	sources := entry.Sources
	if sources == nil {
		sources = []model.ContextSource{}
	}
	encoded, err := json.Marshal(sources)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode query sources")
	}
	now := formatTime(time.Now())

	_, err = r.db.ExecContext(ctx, `INSERT INTO query_history (`+queryHistoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.Query, entry.Intent, entry.Response, string(encoded),
		entry.LatencyMS, entry.Feedback, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert query history entry")
	}

	return r.Get(ctx, id)
}

func (r *queryHistoryRepository) Get(ctx context.Context, id types.QueryID) (*model.QueryHistoryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+queryHistoryColumns+` FROM query_history WHERE id = ?`, id)
	entry, err := scanQueryHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "query history entry not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get query history entry")
	}
	return entry, nil
}

func (r *queryHistoryRepository) List(ctx context.Context, limit, offset int) ([]*model.QueryHistoryEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM query_history`).Scan(&total); err != nil {
		return nil, 0, goerr.Wrap(err, "failed to count query history")
	}

	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+queryHistoryColumns+` FROM query_history
		ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to list query history")
	}
	defer rows.Close()

	entries := make([]*model.QueryHistoryEntry, 0)
	for rows.Next() {
		entry, err := scanQueryHistory(rows)
		if err != nil {
			return nil, 0, goerr.Wrap(err, "failed to scan query history entry")
		}
		entries = append(entries, entry)
	}

	return entries, total, rows.Err()
}

func (r *queryHistoryRepository) UpdateFeedback(ctx context.Context, id types.QueryID, feedback string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE query_history SET feedback = ? WHERE id = ?`, feedback, id)
	if err != nil {
		return goerr.Wrap(err, "failed to update query feedback")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return goerr.Wrap(types.ErrNotFound, "query history entry not found", goerr.V("id", id))
	}
	return nil
}

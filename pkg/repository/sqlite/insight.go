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

type insightRepository struct {
	db *sql.DB
}

const insightColumns = `id, type, category, title, hypothesis, confidence,
	evidence, sample_size, status, superseded_by, feedback, created_at, updated_at`

func scanInsight(row interface{ Scan(...any) error }) (*model.Insight, error) {
	var i model.Insight
	var createdAt, updatedAt string

	err := row.Scan(&i.ID, &i.Type, &i.Category, &i.Title, &i.Hypothesis,
		&i.Confidence, &i.Evidence, &i.SampleSize, &i.Status, &i.SupersededBy,
		&i.Feedback, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	i.CreatedAt = parseTime(createdAt)
	i.UpdatedAt = parseTime(updatedAt)
	return &i, nil
}

func (r *insightRepository) Create(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	id := insight.ID
	if id == "" {
		id = types.NewInsightID()
	}
	status := insight.Status
	if status == "" {
		status = types.InsightActive
	}
	now := formatTime(time.Now())

	_, err := r.db.ExecContext(ctx, `INSERT INTO insights (`+insightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, insight.Type, insight.Category, insight.Title, insight.Hypothesis,
		insight.Confidence, insight.Evidence, insight.SampleSize, status,
		insight.SupersededBy, insight.Feedback, now, now)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert insight")
	}

	return r.Get(ctx, id)
}

func (r *insightRepository) Get(ctx context.Context, id types.InsightID) (*model.Insight, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insights WHERE id = ?`, id)
	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "insight not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get insight")
	}
	return insight, nil
}

func (r *insightRepository) List(ctx context.Context, filter interfaces.InsightFilter) ([]*model.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights WHERE 1=1`
	args := []any{}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, filter.Type)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.MinConfidence > 0 {
		query += ` AND confidence >= ?`
		args = append(args, filter.MinConfidence)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list insights")
	}
	defer rows.Close()

	insights := make([]*model.Insight, 0)
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan insight")
		}
		insights = append(insights, insight)
	}

	return insights, rows.Err()
}

func (r *insightRepository) Update(ctx context.Context, insight *model.Insight) (*model.Insight, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE insights SET
		type = ?, category = ?, title = ?, hypothesis = ?, confidence = ?,
		evidence = ?, sample_size = ?, status = ?, superseded_by = ?,
		feedback = ?, updated_at = ?
		WHERE id = ?`,
		insight.Type, insight.Category, insight.Title, insight.Hypothesis,
		insight.Confidence, insight.Evidence, insight.SampleSize, insight.Status,
		insight.SupersededBy, insight.Feedback, formatTime(time.Now()), insight.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update insight")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "insight not found", goerr.V("id", insight.ID))
	}

	return r.Get(ctx, insight.ID)
}

func (r *insightRepository) GetActiveByType(ctx context.Context, t types.InsightType) (*model.Insight, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+insightColumns+` FROM insights
		WHERE type = ? AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		t, types.InsightActive)
	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active insight")
	}
	return insight, nil
}

func (r *insightRepository) AppendSnapshot(ctx context.Context, snapshot *model.InsightSnapshot) error {
	recordedAt := snapshot.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO insight_history
		(insight_id, confidence, evidence, sample_size, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		snapshot.InsightID, snapshot.Confidence, snapshot.Evidence,
		snapshot.SampleSize, formatTime(recordedAt))
	if err != nil {
		return goerr.Wrap(err, "failed to insert insight snapshot")
	}
	return nil
}

func (r *insightRepository) ListSnapshots(ctx context.Context, insightID types.InsightID) ([]*model.InsightSnapshot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, insight_id, confidence, evidence, sample_size, recorded_at
		FROM insight_history WHERE insight_id = ? ORDER BY id`, insightID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list insight snapshots")
	}
	defer rows.Close()

	snapshots := make([]*model.InsightSnapshot, 0)
	for rows.Next() {
		var s model.InsightSnapshot
		var recordedAt string
		if err := rows.Scan(&s.ID, &s.InsightID, &s.Confidence, &s.Evidence,
			&s.SampleSize, &recordedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan insight snapshot")
		}
		s.RecordedAt = parseTime(recordedAt)
		snapshots = append(snapshots, &s)
	}

	return snapshots, rows.Err()
}

type signalWeightRepository struct {
	db *sql.DB
}

func scanSignalWeight(row interface{ Scan(...any) error }) (*model.SignalWeight, error) {
	var w model.SignalWeight
	var learned sql.NullFloat64
	var updatedAt string

	err := row.Scan(&w.SignalType, &w.DefaultWeight, &learned, &w.Confidence,
		&w.SampleSize, &updatedAt)
	if err != nil {
		return nil, err
	}

	if learned.Valid {
		v := learned.Float64
		w.LearnedWeight = &v
	}
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}

func (r *signalWeightRepository) Get(ctx context.Context, signalType string) (*model.SignalWeight, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT signal_type, default_weight, learned_weight, confidence, sample_size, updated_at
		FROM signal_weights WHERE signal_type = ?`, signalType)
	weight, err := scanSignalWeight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get signal weight")
	}
	return weight, nil
}

func (r *signalWeightRepository) Upsert(ctx context.Context, weight *model.SignalWeight) error {
	var learned any
	if weight.LearnedWeight != nil {
		learned = *weight.LearnedWeight
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO signal_weights
		(signal_type, default_weight, learned_weight, confidence, sample_size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (signal_type) DO UPDATE SET
			default_weight = excluded.default_weight,
			learned_weight = excluded.learned_weight,
			confidence = excluded.confidence,
			sample_size = excluded.sample_size,
			updated_at = excluded.updated_at`,
		weight.SignalType, weight.DefaultWeight, learned, weight.Confidence,
		weight.SampleSize, formatTime(time.Now()))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert signal weight")
	}
	return nil
}

func (r *signalWeightRepository) List(ctx context.Context) ([]*model.SignalWeight, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT signal_type, default_weight, learned_weight, confidence, sample_size, updated_at
		FROM signal_weights ORDER BY signal_type`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list signal weights")
	}
	defer rows.Close()

	weights := make([]*model.SignalWeight, 0)
	for rows.Next() {
		weight, err := scanSignalWeight(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan signal weight")
		}
		weights = append(weights, weight)
	}

	return weights, rows.Err()
}

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

type segmentRepository struct {
	db *sql.DB
}

const segmentColumns = `id, source_id, position, content, speaker, start_time,
	end_time, knowledge_type, confidence, summary, tags, created_at`

func scanSegment(row interface{ Scan(...any) error }) (*model.Segment, error) {
	var s model.Segment
	var tags, createdAt string

	err := row.Scan(&s.ID, &s.SourceID, &s.Position, &s.Content, &s.Speaker,
		&s.StartTime, &s.EndTime, &s.Knowledge, &s.Confidence, &s.Summary,
		&tags, &createdAt)
	if err != nil {
		return nil, err
	}

	if tags != "" && tags != "[]" {
		if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
			return nil, goerr.Wrap(err, "failed to decode segment tags")
		}
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

func (r *segmentRepository) ReplaceForSource(ctx context.Context, sourceID types.SourceID, segments []*model.Segment) ([]*model.Segment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin segment replace tx")
	}
	defer func() { _ = tx.Rollback() }()

	// Clear-then-insert under one transaction; joins cascade with segments
	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE source_id = ?`, sourceID); err != nil {
		return nil, goerr.Wrap(err, "failed to clear segments", goerr.V("source_id", sourceID))
	}

	now := formatTime(time.Now())
	stored := make([]*model.Segment, 0, len(segments))
	for i, segment := range segments {
		id := segment.ID
		if id == "" {
			id = types.NewSegmentID()
		}
		tags := segment.Tags
		if tags == nil {
			tags = []string{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode segment tags")
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO segments (`+segmentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, sourceID, i, segment.Content, segment.Speaker, segment.StartTime,
			segment.EndTime, segment.Knowledge.Normalize(), segment.Confidence,
			segment.Summary, string(encoded), now)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to insert segment")
		}

		copied := *segment
		copied.ID = id
		copied.SourceID = sourceID
		copied.Position = i
		copied.CreatedAt = parseTime(now)
		stored = append(stored, &copied)
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit segment replace")
	}

	return stored, nil
}

func (r *segmentRepository) Get(ctx context.Context, id types.SegmentID) (*model.Segment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE id = ?`, id)
	segment, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "segment not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get segment")
	}
	return segment, nil
}

func (r *segmentRepository) Update(ctx context.Context, segment *model.Segment) (*model.Segment, error) {
	tags := segment.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode segment tags")
	}

	result, err := r.db.ExecContext(ctx, `UPDATE segments
		SET speaker = ?, knowledge_type = ?, confidence = ?, summary = ?, tags = ?
		WHERE id = ?`,
		segment.Speaker, segment.Knowledge.Normalize(), segment.Confidence,
		segment.Summary, string(encoded), segment.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update segment", goerr.V("id", segment.ID))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check segment update")
	}
	if affected == 0 {
		return nil, goerr.Wrap(types.ErrNotFound, "segment not found", goerr.V("id", segment.ID))
	}

	return r.Get(ctx, segment.ID)
}

func (r *segmentRepository) querySegments(ctx context.Context, query string, args ...any) ([]*model.Segment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query segments")
	}
	defer rows.Close()

	segments := make([]*model.Segment, 0)
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan segment")
		}
		segments = append(segments, segment)
	}

	return segments, rows.Err()
}

func (r *segmentRepository) ListBySource(ctx context.Context, sourceID types.SourceID) ([]*model.Segment, error) {
	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE source_id = ? ORDER BY position`,
		sourceID)
}

func (r *segmentRepository) ListByKnowledgeType(ctx context.Context, kinds []types.KnowledgeType, limit int) ([]*model.Segment, error) {
	if len(kinds) == 0 {
		return []*model.Segment{}, nil
	}
	if limit <= 0 {
		limit = -1
	}

	placeholders := ""
	args := make([]any, 0, len(kinds)+1)
	for i, k := range kinds {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, k)
	}
	args = append(args, limit)

	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE knowledge_type IN (`+placeholders+`)
		ORDER BY created_at DESC, position LIMIT ?`, args...)
}

func (r *segmentRepository) ListByTag(ctx context.Context, tag string, limit int) ([]*model.Segment, error) {
	if limit <= 0 {
		limit = -1
	}
	// Tags are a small JSON array; substring match on the quoted value
	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE instr(tags, ?) > 0
		ORDER BY created_at DESC, position LIMIT ?`,
		`"`+tag+`"`, limit)
}

func (r *segmentRepository) Search(ctx context.Context, keyword string, limit int) ([]*model.Segment, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.querySegments(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE content LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, position LIMIT ?`,
		"%"+escapeLike(keyword)+"%", limit)
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func (r *segmentRepository) LinkPerson(ctx context.Context, link *model.SegmentPersonLink) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO segment_people (segment_id, person_id, role)
		VALUES (?, ?, ?)
		ON CONFLICT (segment_id, person_id) DO UPDATE SET role = excluded.role`,
		link.SegmentID, link.PersonID, link.Role)
	if err != nil {
		return goerr.Wrap(err, "failed to link segment to person",
			goerr.V("segment_id", link.SegmentID), goerr.V("person_id", link.PersonID))
	}
	return nil
}

func (r *segmentRepository) LinkDeal(ctx context.Context, link *model.SegmentDealLink) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO segment_deals (segment_id, deal_id)
		VALUES (?, ?) ON CONFLICT (segment_id, deal_id) DO NOTHING`,
		link.SegmentID, link.DealID)
	if err != nil {
		return goerr.Wrap(err, "failed to link segment to deal",
			goerr.V("segment_id", link.SegmentID), goerr.V("deal_id", link.DealID))
	}
	return nil
}

func (r *segmentRepository) ListByPerson(ctx context.Context, personID types.PersonID, limit int) ([]*model.Segment, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.querySegments(ctx,
		`SELECT s.id, s.source_id, s.position, s.content, s.speaker, s.start_time,
			s.end_time, s.knowledge_type, s.confidence, s.summary, s.tags, s.created_at
		FROM segments s JOIN segment_people sp ON sp.segment_id = s.id
		WHERE sp.person_id = ? ORDER BY s.created_at DESC, s.position LIMIT ?`,
		personID, limit)
}

func (r *segmentRepository) ListByDeal(ctx context.Context, dealID types.DealID, limit int) ([]*model.Segment, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.querySegments(ctx,
		`SELECT s.id, s.source_id, s.position, s.content, s.speaker, s.start_time,
			s.end_time, s.knowledge_type, s.confidence, s.summary, s.tags, s.created_at
		FROM segments s JOIN segment_deals sd ON sd.segment_id = s.id
		WHERE sd.deal_id = ? ORDER BY s.created_at DESC, s.position LIMIT ?`,
		dealID, limit)
}

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

type sectionRepository struct {
	db *sql.DB
}

func (r *sectionRepository) Get(ctx context.Context, entityType types.EntityType, entityID string, sectionType types.SectionType) (*model.LivingSection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT entity_type, entity_id, section_type, content, data_hash, generated_at, stale
		FROM living_sections
		WHERE entity_type = ? AND entity_id = ? AND section_type = ?`,
		entityType, entityID, sectionType)

	section, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get living section")
	}
	return section, nil
}

func scanSection(row interface{ Scan(...any) error }) (*model.LivingSection, error) {
	var s model.LivingSection
	var generatedAt string
	var stale int

	err := row.Scan(&s.EntityType, &s.EntityID, &s.SectionType, &s.Content,
		&s.DataHash, &generatedAt, &stale)
	if err != nil {
		return nil, err
	}

	s.GeneratedAt = parseTime(generatedAt)
	s.Stale = stale != 0
	return &s, nil
}

func (r *sectionRepository) Upsert(ctx context.Context, section *model.LivingSection) error {
	generatedAt := section.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	stale := 0
	if section.Stale {
		stale = 1
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO living_sections
		(entity_type, entity_id, section_type, content, data_hash, generated_at, stale)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id, section_type) DO UPDATE SET
			content = excluded.content,
			data_hash = excluded.data_hash,
			generated_at = excluded.generated_at,
			stale = excluded.stale`,
		section.EntityType, section.EntityID, section.SectionType,
		section.Content, section.DataHash, formatTime(generatedAt), stale)
	if err != nil {
		return goerr.Wrap(err, "failed to upsert living section")
	}
	return nil
}

func (r *sectionRepository) MarkStale(ctx context.Context, entityType types.EntityType, entityID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE living_sections SET stale = 1 WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID)
	if err != nil {
		return goerr.Wrap(err, "failed to mark sections stale")
	}
	return nil
}

func (r *sectionRepository) ListByEntity(ctx context.Context, entityType types.EntityType, entityID string) ([]*model.LivingSection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entity_type, entity_id, section_type, content, data_hash, generated_at, stale
		FROM living_sections
		WHERE entity_type = ? AND entity_id = ? ORDER BY section_type`,
		entityType, entityID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list living sections")
	}
	defer rows.Close()

	sections := make([]*model.LivingSection, 0)
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan living section")
		}
		sections = append(sections, section)
	}

	return sections, rows.Err()
}

type metricsRepository struct {
	db *sql.DB
}

func (r *metricsRepository) Upsert(ctx context.Context, metrics *model.CallMetrics) error {
	questions, err := json.Marshal(metrics.Questions)
	if err != nil {
		return goerr.Wrap(err, "failed to encode question breakdown")
	}
	depth, err := json.Marshal(orEmptyMap(metrics.DiscoveryDepth))
	if err != nil {
		return goerr.Wrap(err, "failed to encode discovery depth")
	}
	strong, err := json.Marshal(orEmptySlice(metrics.StrongMoments))
	if err != nil {
		return goerr.Wrap(err, "failed to encode strong moments")
	}
	improvements, err := json.Marshal(orEmptySlice(metrics.ImprovementAreas))
	if err != nil {
		return goerr.Wrap(err, "failed to encode improvement areas")
	}
	nextSteps := 0
	if metrics.NextStepsSet {
		nextSteps = 1
	}
	createdAt := metrics.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO call_metrics
		(source_id, talk_ratio, questions, listening_score, discovery_depth,
		strong_moments, improvements, objection_notes, next_steps_set, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			talk_ratio = excluded.talk_ratio,
			questions = excluded.questions,
			listening_score = excluded.listening_score,
			discovery_depth = excluded.discovery_depth,
			strong_moments = excluded.strong_moments,
			improvements = excluded.improvements,
			objection_notes = excluded.objection_notes,
			next_steps_set = excluded.next_steps_set`,
		metrics.SourceID, metrics.TalkRatio, string(questions),
		metrics.ListeningScore, string(depth), string(strong),
		string(improvements), metrics.ObjectionNotes, nextSteps,
		formatTime(createdAt))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert call metrics")
	}
	return nil
}

func orEmptyMap(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanMetrics(row interface{ Scan(...any) error }) (*model.CallMetrics, error) {
	var m model.CallMetrics
	var questions, depth, strong, improvements, createdAt string
	var nextSteps int

	err := row.Scan(&m.SourceID, &m.TalkRatio, &questions, &m.ListeningScore,
		&depth, &strong, &improvements, &m.ObjectionNotes, &nextSteps, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(questions), &m.Questions); err != nil {
		return nil, goerr.Wrap(err, "failed to decode question breakdown")
	}
	if err := json.Unmarshal([]byte(depth), &m.DiscoveryDepth); err != nil {
		return nil, goerr.Wrap(err, "failed to decode discovery depth")
	}
	if err := json.Unmarshal([]byte(strong), &m.StrongMoments); err != nil {
		return nil, goerr.Wrap(err, "failed to decode strong moments")
	}
	if err := json.Unmarshal([]byte(improvements), &m.ImprovementAreas); err != nil {
		return nil, goerr.Wrap(err, "failed to decode improvement areas")
	}
	m.NextStepsSet = nextSteps != 0
	m.CreatedAt = parseTime(createdAt)
	return &m, nil
}

const metricsColumns = `source_id, talk_ratio, questions, listening_score,
	discovery_depth, strong_moments, improvements, objection_notes, next_steps_set, created_at`

func (r *metricsRepository) GetBySource(ctx context.Context, sourceID types.SourceID) (*model.CallMetrics, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+metricsColumns+` FROM call_metrics WHERE source_id = ?`, sourceID)
	metrics, err := scanMetrics(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get call metrics")
	}
	return metrics, nil
}

func (r *metricsRepository) List(ctx context.Context) ([]*model.CallMetrics, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+metricsColumns+` FROM call_metrics ORDER BY created_at DESC, source_id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list call metrics")
	}
	defer rows.Close()

	metrics := make([]*model.CallMetrics, 0)
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan call metrics")
		}
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

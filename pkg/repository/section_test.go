package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

func runSectionRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Get returns nil for a never-generated section", func(t *testing.T) {
		repo := newRepo(t)

		section, err := repo.Section().Get(context.Background(),
			types.EntityDeal, "deal-1", types.SectionDealSummary)
		gt.NoError(t, err)
		gt.Value(t, section).Nil()
	})

	t.Run("Upsert replaces and MarkStale flags all sections of an entity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.Section().Upsert(ctx, &model.LivingSection{
			EntityType:  types.EntityDeal,
			EntityID:    "deal-1",
			SectionType: types.SectionDealSummary,
			Content:     "first draft",
			DataHash:    "h1",
			GeneratedAt: time.Now().UTC(),
		}))
		gt.NoError(t, repo.Section().Upsert(ctx, &model.LivingSection{
			EntityType:  types.EntityDeal,
			EntityID:    "deal-1",
			SectionType: types.SectionDealSummary,
			Content:     "second draft",
			DataHash:    "h2",
			GeneratedAt: time.Now().UTC(),
		}))

		section, err := repo.Section().Get(ctx,
			types.EntityDeal, "deal-1", types.SectionDealSummary)
		gt.NoError(t, err).Required()
		gt.Value(t, section).NotNil()
		gt.Value(t, section.Content).Equal("second draft")
		gt.Bool(t, section.Stale).False()

		gt.NoError(t, repo.Section().MarkStale(ctx, types.EntityDeal, "deal-1"))

		stale, err := repo.Section().Get(ctx,
			types.EntityDeal, "deal-1", types.SectionDealSummary)
		gt.NoError(t, err).Required()
		gt.Bool(t, stale.Stale).True()
		gt.Value(t, stale.Content).Equal("second draft")

		listed, err := repo.Section().ListByEntity(ctx, types.EntityDeal, "deal-1")
		gt.NoError(t, err).Required()
		gt.Array(t, listed).Length(1)
	})
}

func runMetricsRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Upsert replaces the metrics of a source", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		source := seedSource(t, repo, "metricated call")

		gt.NoError(t, repo.Metrics().Upsert(ctx, &model.CallMetrics{
			SourceID:     source.ID,
			TalkRatio:    0.6,
			NextStepsSet: false,
		}))
		gt.NoError(t, repo.Metrics().Upsert(ctx, &model.CallMetrics{
			SourceID:      source.ID,
			TalkRatio:     0.42,
			NextStepsSet:  true,
			StrongMoments: []string{"good discovery"},
		}))

		metrics, err := repo.Metrics().GetBySource(ctx, source.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, metrics).NotNil()
		gt.Value(t, metrics.TalkRatio).Equal(0.42)
		gt.Bool(t, metrics.NextStepsSet).True()
		gt.Array(t, metrics.StrongMoments).Length(1)

		all, err := repo.Metrics().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(1)
	})

	t.Run("GetBySource returns nil without metrics", func(t *testing.T) {
		repo := newRepo(t)

		metrics, err := repo.Metrics().GetBySource(context.Background(), types.NewSourceID())
		gt.NoError(t, err)
		gt.Value(t, metrics).Nil()
	})
}

func TestSectionRepository_Memory(t *testing.T) {
	runSectionRepositoryTest(t, newMemoryRepository)
}

func TestSectionRepository_SQLite(t *testing.T) {
	runSectionRepositoryTest(t, newSQLiteRepository)
}

func TestMetricsRepository_Memory(t *testing.T) {
	runMetricsRepositoryTest(t, newMemoryRepository)
}

func TestMetricsRepository_SQLite(t *testing.T) {
	runMetricsRepositoryTest(t, newSQLiteRepository)
}

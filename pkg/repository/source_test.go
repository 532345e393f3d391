package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

func runSourceRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create and GetByFingerprint", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		content := "kickoff call with acme"
		created, err := repo.Source().Create(ctx, &model.Source{
			Filename:    "2026-03-01-acme.txt",
			Content:     content,
			Fingerprint: model.Fingerprint(content),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, string(created.ID)).NotEqual("")
		gt.Bool(t, created.CreatedAt.IsZero()).False()

		found, err := repo.Source().GetByFingerprint(ctx, model.Fingerprint(content))
		gt.NoError(t, err).Required()
		gt.Value(t, found).NotNil()
		gt.Value(t, found.ID).Equal(created.ID)

		missing, err := repo.Source().GetByFingerprint(ctx, model.Fingerprint("other"))
		gt.NoError(t, err)
		gt.Value(t, missing).Nil()
	})

	t.Run("duplicate fingerprint rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		content := "same transcript twice"
		_, err := repo.Source().Create(ctx, &model.Source{
			Filename:    "a.txt",
			Content:     content,
			Fingerprint: model.Fingerprint(content),
		})
		gt.NoError(t, err).Required()

		_, err = repo.Source().Create(ctx, &model.Source{
			Filename:    "b.txt",
			Content:     content,
			Fingerprint: model.Fingerprint(content),
		})
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
	})

	t.Run("List paginates with total count", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			content := fmt.Sprintf("call number %d", i)
			_, err := repo.Source().Create(ctx, &model.Source{
				Filename:    fmt.Sprintf("call-%d.txt", i),
				Content:     content,
				Fingerprint: model.Fingerprint(content),
			})
			gt.NoError(t, err).Required()
		}

		page, total, err := repo.Source().List(ctx, 2, 0)
		gt.NoError(t, err).Required()
		gt.Value(t, total).Equal(3)
		gt.Array(t, page).Length(2)

		rest, total, err := repo.Source().List(ctx, 2, 2)
		gt.NoError(t, err).Required()
		gt.Value(t, total).Equal(3)
		gt.Array(t, rest).Length(1)
	})

	t.Run("Update records processing state", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		content := "processed call"
		source, err := repo.Source().Create(ctx, &model.Source{
			Filename:    "done.txt",
			Content:     content,
			Fingerprint: model.Fingerprint(content),
		})
		gt.NoError(t, err).Required()
		gt.Value(t, source.ProcessedAt).Nil()

		now := time.Now().UTC()
		source.ProcessedAt = &now
		source.Summary = "short recap"
		updated, err := repo.Source().Update(ctx, source)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.ProcessedAt).NotNil()
		gt.Value(t, updated.Summary).Equal("short recap")
	})

	t.Run("Delete cascades to segments and metrics", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		content := "call to be deleted"
		source, err := repo.Source().Create(ctx, &model.Source{
			Filename:    "gone.txt",
			Content:     content,
			Fingerprint: model.Fingerprint(content),
		})
		gt.NoError(t, err).Required()

		segments, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "first part"},
			{Content: "second part"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, segments).Length(2)

		gt.NoError(t, repo.Metrics().Upsert(ctx, &model.CallMetrics{
			SourceID:  source.ID,
			TalkRatio: 0.4,
		}))

		gt.NoError(t, repo.Source().Delete(ctx, source.ID))

		_, err = repo.Source().Get(ctx, source.ID)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()

		remaining, err := repo.Segment().ListBySource(ctx, source.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, remaining).Length(0)

		metrics, err := repo.Metrics().GetBySource(ctx, source.ID)
		gt.NoError(t, err)
		gt.Value(t, metrics).Nil()
	})
}

func TestSourceRepository_Memory(t *testing.T) {
	runSourceRepositoryTest(t, newMemoryRepository)
}

func TestSourceRepository_SQLite(t *testing.T) {
	runSourceRepositoryTest(t, newSQLiteRepository)
}

package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

func runDealRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create seeds eight unknown elements in canonical order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Globex"})
		gt.NoError(t, err).Required()
		gt.Value(t, deal.Status).Equal(types.DealStatusActive)
		gt.Bool(t, deal.LastActivityAt.IsZero()).False()

		elements, err := repo.Meddpicc().ListByDeal(ctx, deal.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, elements).Length(8)
		for i, letter := range types.AllMeddpiccLetters() {
			gt.Value(t, elements[i].Letter).Equal(letter)
			gt.Value(t, elements[i].Status).Equal(types.ElementUnknown)
		}
	})

	t.Run("Get unknown deal is not found", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Deal().Get(context.Background(), types.NewDealID())
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
	})

	t.Run("Update changes status and keeps elements", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Initech"})
		gt.NoError(t, err).Required()

		deal.Status = types.DealStatusWon
		deal.Notes = "signed after the pilot"
		updated, err := repo.Deal().Update(ctx, deal)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Status).Equal(types.DealStatusWon)
		gt.Value(t, updated.Notes).Equal("signed after the pilot")

		elements, err := repo.Meddpicc().ListByDeal(ctx, deal.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, elements).Length(8)
	})

	t.Run("element update round-trips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Hooli"})
		gt.NoError(t, err).Required()

		element, err := repo.Meddpicc().Get(ctx, deal.ID, types.LetterEconomicBuyer)
		gt.NoError(t, err).Required()

		element.Status = types.ElementIdentified
		element.Evidence = "CFO owns the budget"
		element.Confidence = 0.8
		updated, err := repo.Meddpicc().Update(ctx, element)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Status).Equal(types.ElementIdentified)
		gt.Value(t, updated.Evidence).Equal("CFO owns the budget")

		stored, err := repo.Meddpicc().Get(ctx, deal.ID, types.LetterEconomicBuyer)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Confidence).Equal(0.8)
	})

	t.Run("Delete cascades to elements and joins, segments survive", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		source, err := repo.Source().Create(ctx, &model.Source{
			Filename:    "call.txt",
			Content:     "we discussed the budget",
			Fingerprint: model.Fingerprint("we discussed the budget"),
		})
		gt.NoError(t, err).Required()

		segments, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "we discussed the budget"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, segments).Length(1).Required()

		deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Globex"})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Segment().LinkDeal(ctx, &model.SegmentDealLink{
			SegmentID: segments[0].ID,
			DealID:    deal.ID,
		}))

		linked, err := repo.Segment().ListByDeal(ctx, deal.ID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, linked).Length(1)

		gt.NoError(t, repo.Deal().Delete(ctx, deal.ID))

		_, err = repo.Deal().Get(ctx, deal.ID)
		gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()

		_, err = repo.Meddpicc().ListByDeal(ctx, deal.ID)
		gt.Error(t, err)

		orphaned, err := repo.Segment().ListByDeal(ctx, deal.ID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, orphaned).Length(0)

		survivor, err := repo.Segment().Get(ctx, segments[0].ID)
		gt.NoError(t, err).Required()
		gt.Value(t, survivor.Content).Equal("we discussed the budget")
	})
}

func TestDealRepository_Memory(t *testing.T) {
	runDealRepositoryTest(t, newMemoryRepository)
}

func TestDealRepository_SQLite(t *testing.T) {
	runDealRepositoryTest(t, newSQLiteRepository)
}

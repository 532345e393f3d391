package repository_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

func seedSource(t *testing.T, repo interfaces.Repository, content string) *model.Source {
	t.Helper()
	source, err := repo.Source().Create(context.Background(), &model.Source{
		Filename:    "seed.txt",
		Content:     content,
		Fingerprint: model.Fingerprint(content),
	})
	gt.NoError(t, err).Required()
	return source
}

func runSegmentRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("ReplaceForSource leaves no survivors from prior runs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		source := seedSource(t, repo, "replace me")

		first, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "old one"},
			{Content: "old two"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, first).Length(2)

		second, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "new one"},
			{Content: "new two"},
			{Content: "new three"},
		})
		gt.NoError(t, err).Required()
		gt.Array(t, second).Length(3)

		stored, err := repo.Segment().ListBySource(ctx, source.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, stored).Length(3)
		for i, segment := range stored {
			gt.Value(t, segment.Position).Equal(i)
		}
		gt.Value(t, stored[0].Content).Equal("new one")

		_, err = repo.Segment().Get(ctx, first[0].ID)
		gt.Error(t, err)
	})

	t.Run("entity links are idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		source := seedSource(t, repo, "link me")

		segments, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "Sarah asked about pricing"},
		})
		gt.NoError(t, err).Required()

		person, err := repo.Person().Create(ctx, &model.Person{Name: "Sarah Chen"})
		gt.NoError(t, err).Required()
		deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Globex"})
		gt.NoError(t, err).Required()

		link := &model.SegmentPersonLink{SegmentID: segments[0].ID, PersonID: person.ID, Role: "buyer"}
		gt.NoError(t, repo.Segment().LinkPerson(ctx, link))
		gt.NoError(t, repo.Segment().LinkPerson(ctx, link))

		dealLink := &model.SegmentDealLink{SegmentID: segments[0].ID, DealID: deal.ID}
		gt.NoError(t, repo.Segment().LinkDeal(ctx, dealLink))
		gt.NoError(t, repo.Segment().LinkDeal(ctx, dealLink))

		byPerson, err := repo.Segment().ListByPerson(ctx, person.ID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, byPerson).Length(1)

		byDeal, err := repo.Segment().ListByDeal(ctx, deal.ID, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, byDeal).Length(1)
	})

	t.Run("Search matches case-insensitive substrings", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		source := seedSource(t, repo, "search me")

		_, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "The Budget Approval takes six weeks"},
			{Content: "nothing relevant here"},
		})
		gt.NoError(t, err).Required()

		hits, err := repo.Segment().Search(ctx, "budget approval", 10)
		gt.NoError(t, err).Required()
		gt.Array(t, hits).Length(1)

		none, err := repo.Segment().Search(ctx, "kubernetes", 10)
		gt.NoError(t, err).Required()
		gt.Array(t, none).Length(0)
	})

	t.Run("ListByTag and ListByKnowledgeType filter and cap", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		source := seedSource(t, repo, "filter me")

		_, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "pricing worry", Knowledge: types.KnowledgeSalesInsight, Tags: []string{"pricing"}},
			{Content: "general chat", Knowledge: types.KnowledgeUnknown},
			{Content: "another insight", Knowledge: types.KnowledgeSalesInsight},
		})
		gt.NoError(t, err).Required()

		tagged, err := repo.Segment().ListByTag(ctx, "pricing", 10)
		gt.NoError(t, err).Required()
		gt.Array(t, tagged).Length(1)
		gt.Value(t, tagged[0].Content).Equal("pricing worry")

		insights, err := repo.Segment().ListByKnowledgeType(ctx,
			[]types.KnowledgeType{types.KnowledgeSalesInsight}, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, insights).Length(2)

		capped, err := repo.Segment().ListByKnowledgeType(ctx,
			[]types.KnowledgeType{types.KnowledgeSalesInsight}, 1)
		gt.NoError(t, err).Required()
		gt.Array(t, capped).Length(1)
	})

	t.Run("Update rewrites classification only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		source := seedSource(t, repo, "update me")

		segments, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
			{Content: "raw text", Knowledge: types.KnowledgeUnknown},
		})
		gt.NoError(t, err).Required()

		segment := segments[0]
		segment.Knowledge = types.KnowledgeSalesInsight
		segment.Confidence = 0.9
		segment.Summary = "a real insight"
		updated, err := repo.Segment().Update(ctx, segment)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Knowledge).Equal(types.KnowledgeSalesInsight)
		gt.Value(t, updated.Summary).Equal("a real insight")
		gt.Value(t, updated.Content).Equal("raw text")
		gt.Value(t, updated.Position).Equal(0)
	})
}

func TestSegmentRepository_Memory(t *testing.T) {
	runSegmentRepositoryTest(t, newMemoryRepository)
}

func TestSegmentRepository_SQLite(t *testing.T) {
	runSegmentRepositoryTest(t, newSQLiteRepository)
}

package usecase

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
)

func TestDedupMergesSubsetNames(t *testing.T) {
	payload := extractionPayload{
		People: []extractedPerson{
			{Name: "Sarah Chen", Role: "VP Engineering", Company: "Acme"},
			{Name: "Sarah", KeyInfo: "prefers async communication"},
		},
	}
	payload.dedup()

	gt.Array(t, payload.People).Length(1)
	gt.Value(t, payload.People[0].Name).Equal("Sarah Chen")
	gt.Value(t, payload.People[0].Role).Equal("VP Engineering")
	gt.Value(t, payload.People[0].KeyInfo).Equal("prefers async communication")
}

func TestDedupMergesByRoleAndCompany(t *testing.T) {
	payload := extractionPayload{
		People: []extractedPerson{
			{Name: "Mike Torres", Role: "CFO", Company: "Globex"},
			{Name: "Michael T.", Role: "CFO", Company: "Globex", KeyInfo: "controls the budget"},
		},
	}
	payload.dedup()

	gt.Array(t, payload.People).Length(1)
	gt.Value(t, payload.People[0].KeyInfo).Equal("controls the budget")
}

func TestDedupCompanies(t *testing.T) {
	payload := extractionPayload{
		Companies: []extractedCompany{
			{Name: "Acme Corp"},
			{Name: "acme corp", IsDealContext: true},
			{Name: ""},
		},
	}
	payload.dedup()

	gt.Array(t, payload.Companies).Length(1)
	gt.Bool(t, payload.Companies[0].IsDealContext).True()
}

func TestMatchPersonStrategies(t *testing.T) {
	existing := []*model.Person{
		{ID: "p1", Name: "Sarah Chen", Company: "Acme", Role: "VP Engineering"},
		{ID: "p2", Name: "Mike Torres", Company: "Globex", Role: "CFO"},
	}

	cases := []struct {
		name      string
		extracted extractedPerson
		want      types.PersonID
	}{
		{
			name:      "existing id hint",
			extracted: extractedPerson{Name: "someone else entirely", ExistingID: "p2"},
			want:      "p2",
		},
		{
			name:      "exact name case-insensitive",
			extracted: extractedPerson{Name: "sarah chen"},
			want:      "p1",
		},
		{
			name:      "two token overlap",
			extracted: extractedPerson{Name: "Sarah Chen PhD"},
			want:      "p1",
		},
		{
			name:      "last name plus company",
			extracted: extractedPerson{Name: "Ms. Torres", Company: "Globex"},
			want:      "p2",
		},
		{
			name:      "abbreviated form plus company",
			extracted: extractedPerson{Name: "Mike T.", Company: "Globex"},
			want:      "p2",
		},
		{
			name:      "placeholder role plus company",
			extracted: extractedPerson{Name: "the CFO", Company: "Globex"},
			want:      "p2",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matched := matchPerson(tc.extracted, existing)
			gt.Value(t, matched).NotNil()
			gt.Value(t, matched.ID).Equal(tc.want)
		})
	}
}

func TestMatchPersonNoFalsePositive(t *testing.T) {
	existing := []*model.Person{
		{ID: "p1", Name: "Sarah Chen", Company: "Acme"},
	}

	// single shared token is not enough
	matched := matchPerson(extractedPerson{Name: "Sarah Miller"}, existing)
	gt.Value(t, matched).Nil()

	// abbreviation without company agreement does not match
	matched = matchPerson(extractedPerson{Name: "Sarah C.", Company: "Globex"}, existing)
	gt.Value(t, matched).Nil()
}

func TestLinkCreatesPeopleAndDeals(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	linker := newEntityLinker(repo)

	source, err := repo.Source().Create(ctx, &model.Source{
		Filename:    "call.txt",
		Content:     "transcript",
		Fingerprint: model.Fingerprint("transcript"),
	})
	gt.NoError(t, err)
	segments, err := repo.Segment().ReplaceForSource(ctx, source.ID, []*model.Segment{
		{SourceID: source.ID, Position: 0, Content: "Sarah Chen from Acme walked us through their stack", Knowledge: types.KnowledgeProduct},
		{SourceID: source.ID, Position: 1, Content: "budget discussion for Q3", Knowledge: types.KnowledgeSalesInsight},
	})
	gt.NoError(t, err)

	payload := extractionPayload{
		People: []extractedPerson{
			{Name: "Sarah Chen", Role: "VP Engineering", Company: "Acme", Relationship: "prospect"},
		},
		Companies: []extractedCompany{
			{Name: "Acme", IsDealContext: true},
			{Name: "Slack"}, // mentioned tool, not a deal
		},
	}

	result, err := linker.link(ctx, payload, segments)
	gt.NoError(t, err)
	gt.Array(t, result.people).Length(1)
	gt.Array(t, result.deals).Length(1)
	gt.Value(t, result.deals[0].Status).Equal(types.DealStatusActive)

	// the auto-created deal carries eight unknown elements
	elements, err := repo.Meddpicc().ListByDeal(ctx, result.deals[0].ID)
	gt.NoError(t, err)
	gt.Array(t, elements).Length(8)
	for _, element := range elements {
		gt.Value(t, element.Status).Equal(types.ElementUnknown)
	}

	linked, err := repo.Segment().ListByPerson(ctx, result.people[0].ID, 10)
	gt.NoError(t, err)
	gt.Array(t, linked).Length(1)
	gt.Value(t, linked[0].ID).Equal(segments[0].ID)
}

func TestLinkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	linker := newEntityLinker(repo)

	payload := extractionPayload{
		People: []extractedPerson{
			{Name: "Mike Torres", Role: "CFO", Company: "Globex", KeyInfo: "owns the budget"},
		},
		Companies: []extractedCompany{
			{Name: "Globex", IsDealContext: true},
		},
	}

	first, err := linker.link(ctx, payload, nil)
	gt.NoError(t, err)
	second, err := linker.link(ctx, payload, nil)
	gt.NoError(t, err)

	gt.Value(t, second.people[0].ID).Equal(first.people[0].ID)
	gt.Value(t, second.deals[0].ID).Equal(first.deals[0].ID)

	people, err := repo.Person().List(ctx)
	gt.NoError(t, err)
	gt.Array(t, people).Length(1)
	// key info is not appended twice
	gt.Value(t, people[0].Notes).Equal("owns the budget")

	deals, err := repo.Deal().List(ctx)
	gt.NoError(t, err)
	gt.Array(t, deals).Length(1)
}

func TestMergePersonFillsMissingOnly(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	linker := newEntityLinker(repo)

	created, err := repo.Person().Create(ctx, &model.Person{
		Name:         "Sarah Chen",
		Role:         "VP Engineering",
		Relationship: types.RelationshipOther,
	})
	gt.NoError(t, err)

	merged, err := linker.mergePerson(ctx, created, extractedPerson{
		Name:         "Sarah Chen",
		Role:         "CTO", // existing role is kept
		Company:      "Acme",
		Relationship: "customer",
		KeyInfo:      "pushing for a Q3 decision",
	})
	gt.NoError(t, err)

	gt.Value(t, merged.Role).Equal("VP Engineering")
	gt.Value(t, merged.Company).Equal("Acme")
	gt.Value(t, merged.Relationship).Equal(types.RelationshipCustomer)
	gt.Value(t, merged.Notes).Equal("pushing for a Q3 decision")
}

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

func TestSectionGetCachesFreshContent(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "The deal is progressing well.", nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Acme", Status: types.DealStatusActive})
	gt.NoError(t, err)

	// first read generates synchronously
	result, err := uc.Section.Get(ctx, types.EntityDeal, string(deal.ID), types.SectionDealSummary, false)
	gt.NoError(t, err)
	gt.Value(t, result.Content).Equal("The deal is progressing well.")
	gt.Bool(t, result.IsStale).False()
	gt.Array(t, mock.Prompts).Length(1)

	// second read is served from cache
	result, err = uc.Section.Get(ctx, types.EntityDeal, string(deal.ID), types.SectionDealSummary, false)
	gt.NoError(t, err)
	gt.Value(t, result.Content).Equal("The deal is progressing well.")
	gt.Array(t, mock.Prompts).Length(1)
}

func TestSectionStaleServesCacheWhileRefreshing(t *testing.T) {
	ctx := context.Background()
	generated := make(chan struct{}, 1)
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			select {
			case generated <- struct{}{}:
			default:
			}
			return "regenerated summary", nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Acme", Status: types.DealStatusActive})
	gt.NoError(t, err)

	gt.NoError(t, repo.Section().Upsert(ctx, &model.LivingSection{
		EntityType:  types.EntityDeal,
		EntityID:    string(deal.ID),
		SectionType: types.SectionDealSummary,
		Content:     "old summary",
		GeneratedAt: time.Now().Add(-time.Hour),
	}))
	uc.Section.MarkEntityStale(ctx, types.EntityDeal, string(deal.ID))

	// stale content is served immediately, refresh runs in the background
	result, err := uc.Section.Get(ctx, types.EntityDeal, string(deal.ID), types.SectionDealSummary, false)
	gt.NoError(t, err)
	gt.Value(t, result.Content).Equal("old summary")
	gt.Bool(t, result.IsStale).True()
	gt.Bool(t, result.IsRefreshing).True()

	gt.Bool(t, eventuallySection(func() bool {
		stored, err := repo.Section().Get(ctx, types.EntityDeal, string(deal.ID), types.SectionDealSummary)
		return err == nil && stored != nil && !stored.Stale && stored.Content == "regenerated summary"
	}, 2*time.Second)).True()
}

func TestSectionTypeMustMatchEntity(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	_, err := uc.Section.Get(ctx, types.EntityDeal, "deal-1", types.SectionPersonSummary, false)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()

	_, err = uc.Section.Get(ctx, "planet", "x", types.SectionDealSummary, false)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
}

func TestRiskAssessmentIsRuleBased(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{}
	uc, repo := newTestUseCases(t, mock)

	// a month of silence with nothing qualified is a high-risk deal
	deal, err := repo.Deal().Create(ctx, &model.Deal{
		CompanyName:    "Acme",
		Status:         types.DealStatusActive,
		LastActivityAt: time.Now().Add(-30 * 24 * time.Hour),
	})
	gt.NoError(t, err)

	result, err := uc.Section.Get(ctx, types.EntityDeal, string(deal.ID), types.SectionRiskAssessment, false)
	gt.NoError(t, err)
	gt.Bool(t, strings.Contains(result.Content, `"level": "high"`)).True()
	gt.Bool(t, strings.Contains(result.Content, "economic buyer not identified")).True()
	gt.Array(t, mock.Prompts).Length(0)
}

func TestRegenerateForcesRebuild(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "summary", nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	deal, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Acme", Status: types.DealStatusActive})
	gt.NoError(t, err)

	_, err = uc.Section.Get(ctx, types.EntityDeal, string(deal.ID), types.SectionDealSummary, false)
	gt.NoError(t, err)
	_, err = uc.Section.Regenerate(ctx, types.EntityDeal, string(deal.ID), types.SectionDealSummary)
	gt.NoError(t, err)
	gt.Array(t, mock.Prompts).Length(2)
}

func TestGlobalSectionsWithoutHistory(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	result, err := uc.Section.Get(ctx, types.EntityGlobal, "global", types.SectionCoachingReport, false)
	gt.NoError(t, err)
	gt.Bool(t, strings.Contains(result.Content, "No analyzed calls yet")).True()

	result, err = uc.Section.Get(ctx, types.EntityGlobal, "global", types.SectionICPUpdate, false)
	gt.NoError(t, err)
	gt.Bool(t, strings.Contains(result.Content, "No customer profile")).True()
}

func eventuallySection(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

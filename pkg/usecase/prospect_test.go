package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"
	"pgregory.net/rapid"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
)

func TestProspectCreate(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	prospect, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{
		CompanyName: "Initech", Industry: "fintech", EmployeeCount: 250,
	})
	gt.NoError(t, err)
	gt.Value(t, prospect.Tier).Equal(types.Tier3)
	gt.Value(t, prospect.Status).Equal(types.ProspectStatusActive)
	gt.Value(t, prospect.Score).Equal(float64(0))

	_, err = uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "  "})
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
}

func TestProspectScoreWeightPrecedence(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, nil)

	prospect, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "Initech"})
	gt.NoError(t, err)

	// default weight
	_, err = uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
		ProspectID: prospect.ID, SignalType: "hiring_engineers",
	})
	gt.NoError(t, err)
	// explicit signal weight
	_, err = uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
		ProspectID: prospect.ID, SignalType: "funding_round", Weight: 25,
	})
	gt.NoError(t, err)
	// learned weight overrides the signal's own weight
	learned := 40.0
	gt.NoError(t, repo.SignalWeight().Upsert(ctx, &model.SignalWeight{
		SignalType: "tech_match", DefaultWeight: 10, LearnedWeight: &learned,
	}))
	_, err = uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
		ProspectID: prospect.ID, SignalType: "tech_match", Weight: 5,
	})
	gt.NoError(t, err)

	result, err := uc.Prospect.Score(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, result.Score).Equal(float64(10 + 25 + 40))
	gt.Value(t, result.Tier).Equal(types.Tier1)
	gt.Array(t, result.Breakdown).Length(3)

	sources := map[string]string{}
	for _, item := range result.Breakdown {
		sources[item.SignalType] = item.WeightSource
	}
	gt.Value(t, sources["hiring_engineers"]).Equal("default")
	gt.Value(t, sources["funding_round"]).Equal("signal")
	gt.Value(t, sources["tech_match"]).Equal("learned")

	// the stored prospect reflects the new score and tier
	stored, err := uc.Prospect.Get(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, stored.Score).Equal(float64(75))
	gt.Value(t, stored.Tier).Equal(types.Tier1)
}

func TestProspectTierTransitions(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	prospect, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "Initech"})
	gt.NoError(t, err)

	_, err = uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
		ProspectID: prospect.ID, SignalType: "funding", Weight: 45,
	})
	gt.NoError(t, err)
	result, err := uc.Prospect.Score(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, result.Tier).Equal(types.Tier2)

	signal, err := uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
		ProspectID: prospect.ID, SignalType: "expansion", Weight: 30,
	})
	gt.NoError(t, err)
	result, err = uc.Prospect.Score(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, result.Tier).Equal(types.Tier1)

	// removing the signal drops the prospect back down
	gt.NoError(t, uc.Prospect.RemoveSignal(ctx, prospect.ID, signal.ID))
	stored, err := uc.Prospect.Get(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, stored.Tier).Equal(types.Tier2)
}

func TestProspectScoreClamped(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	prospect, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "Initech"})
	gt.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
			ProspectID: prospect.ID, SignalType: fmt.Sprintf("signal_%d", i), Weight: 60,
		})
		gt.NoError(t, err)
	}

	result, err := uc.Prospect.Score(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, result.Score).Equal(float64(100))
}

func TestProspectScoreProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		repo := memory.New()
		uc := usecase.New(repo, llm.NewGateway(&llm.Mock{}))

		prospect, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "Initech"})
		if err != nil {
			t.Fatal(err)
		}

		count := rapid.IntRange(0, 8).Draw(t, "count")
		for i := 0; i < count; i++ {
			weight := rapid.Float64Range(-50, 80).Draw(t, "weight")
			if _, err := uc.Prospect.AddSignal(ctx, &model.ProspectSignal{
				ProspectID: prospect.ID,
				SignalType: fmt.Sprintf("signal_%d", i),
				Weight:     weight,
			}); err != nil {
				t.Fatal(err)
			}
		}

		result, err := uc.Prospect.Score(ctx, prospect.ID)
		if err != nil {
			t.Fatal(err)
		}
		if result.Score < 0 || result.Score > 100 {
			t.Fatalf("score out of range: %f", result.Score)
		}
		switch {
		case result.Score >= 70:
			if result.Tier != types.Tier1 {
				t.Fatalf("score %f should be tier 1, got %d", result.Score, result.Tier)
			}
		case result.Score >= 40:
			if result.Tier != types.Tier2 {
				t.Fatalf("score %f should be tier 2, got %d", result.Score, result.Tier)
			}
		default:
			if result.Tier != types.Tier3 {
				t.Fatalf("score %f should be tier 3, got %d", result.Score, result.Tier)
			}
		}
	})
}

func TestRecomputeAllReportsTierChanges(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, nil)

	moved, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "Initech"})
	gt.NoError(t, err)
	steady, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{CompanyName: "Globex"})
	gt.NoError(t, err)

	// give the first prospect a signal whose learned weight will change
	_, err = repo.Prospect().AddSignal(ctx, &model.ProspectSignal{
		ProspectID: moved.ID, SignalType: "funding",
	})
	gt.NoError(t, err)
	learned := 55.0
	gt.NoError(t, repo.SignalWeight().Upsert(ctx, &model.SignalWeight{
		SignalType: "funding", DefaultWeight: 10, LearnedWeight: &learned,
	}))

	changed, err := uc.Prospect.RecomputeAll(ctx)
	gt.NoError(t, err)
	gt.Array(t, changed).Length(1)
	gt.Value(t, changed[0].ProspectID).Equal(moved.ID)
	gt.Value(t, changed[0].Tier).Equal(types.Tier2)

	stored, err := uc.Prospect.Get(ctx, steady.ID)
	gt.NoError(t, err)
	gt.Value(t, stored.Tier).Equal(types.Tier3)
}

func TestConvertToDeal(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, nil)

	prospect, err := uc.Prospect.Create(ctx, usecase.CreateProspectInput{
		CompanyName: "Initech", Notes: "strong fit",
	})
	gt.NoError(t, err)

	deal, err := uc.Prospect.ConvertToDeal(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, deal.CompanyName).Equal("Initech")
	gt.Value(t, deal.Status).Equal(types.DealStatusActive)
	gt.Value(t, deal.Notes).Equal("strong fit")

	elements, err := repo.Meddpicc().ListByDeal(ctx, deal.ID)
	gt.NoError(t, err)
	gt.Array(t, elements).Length(8)

	stored, err := uc.Prospect.Get(ctx, prospect.ID)
	gt.NoError(t, err)
	gt.Value(t, stored.Status).Equal(types.ProspectStatusConverted)
	gt.Value(t, stored.ConvertedDealID).Equal(deal.ID)

	_, err = uc.Prospect.ConvertToDeal(ctx, prospect.ID)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
}

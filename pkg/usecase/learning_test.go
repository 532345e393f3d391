package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/repository/memory"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
)

func TestRefreshICPSkipsWithoutHistory(t *testing.T) {
	ctx := context.Background()
	calls := 0
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			calls++
			return "{}", nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	gt.NoError(t, uc.Learning.RefreshICP(ctx))
	gt.Value(t, calls).Equal(0)

	active, err := repo.Insight().GetActiveByType(ctx, types.InsightICP)
	gt.NoError(t, err)
	gt.Value(t, active).Nil()
}

func TestRefreshICPCreatesProfile(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return `{
				"title": "Mid-market fintech",
				"hypothesis": "Fintech companies with 100-500 employees close fastest",
				"companyProfile": "Series B fintech",
				"buyingSignals": ["recent funding"],
				"personas": ["VP Engineering"],
				"confidence": 0.7
			}`, nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	_, err := repo.Deal().Create(ctx, &model.Deal{
		CompanyName: "Acme", Status: types.DealStatusWon, Value: 50000, Currency: "USD",
	})
	gt.NoError(t, err)

	gt.NoError(t, uc.Learning.RefreshICP(ctx))

	active, err := repo.Insight().GetActiveByType(ctx, types.InsightICP)
	gt.NoError(t, err)
	gt.Value(t, active).NotNil()
	gt.Value(t, active.Title).Equal("Mid-market fintech")
	gt.Value(t, active.Hypothesis).Equal("Fintech companies with 100-500 employees close fastest")
	gt.Value(t, active.Confidence).Equal(0.7)
	gt.Value(t, active.SampleSize).Equal(1)
	gt.Value(t, active.Status).Equal(types.InsightActive)
}

func TestRefreshICPSupersedesPrevious(t *testing.T) {
	ctx := context.Background()
	generation := 0
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			generation++
			return fmt.Sprintf(`{"hypothesis": "hypothesis %d", "confidence": 0.5}`, generation), nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	_, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Acme", Status: types.DealStatusWon})
	gt.NoError(t, err)

	gt.NoError(t, uc.Learning.RefreshICP(ctx))
	first, err := repo.Insight().GetActiveByType(ctx, types.InsightICP)
	gt.NoError(t, err)

	gt.NoError(t, uc.Learning.RefreshICP(ctx))
	second, err := repo.Insight().GetActiveByType(ctx, types.InsightICP)
	gt.NoError(t, err)
	gt.Value(t, second.Hypothesis).Equal("hypothesis 2")

	archived, err := repo.Insight().Get(ctx, first.ID)
	gt.NoError(t, err)
	gt.Value(t, archived.Status).Equal(types.InsightSuperseded)
	gt.Value(t, archived.SupersededBy).Equal(second.ID)

	snapshots, err := repo.Insight().ListSnapshots(ctx, first.ID)
	gt.NoError(t, err)
	gt.Array(t, snapshots).Length(1)
	gt.Value(t, snapshots[0].Confidence).Equal(0.5)
}

func TestRefreshICPRejectsEmptyHypothesis(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return `{"hypothesis": "  "}`, nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	_, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Acme", Status: types.DealStatusLost})
	gt.NoError(t, err)

	err = uc.Learning.RefreshICP(ctx)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrParseFailure)).True()
}

func TestRefreshPatternsStoresInsights(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return `{
				"patterns": [
					{"category": "discovery", "description": "Asking about timeline early correlates with next steps"},
					{"category": "listening", "description": "Balanced talk ratio on winning calls"}
				],
				"antiPatterns": [
					{"category": "pitching", "description": "Feature dumps before discovery"}
				],
				"confidence": 0.6
			}`, nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	gt.NoError(t, repo.Metrics().Upsert(ctx, &model.CallMetrics{
		SourceID: "src-1", TalkRatio: 0.45, StrongMoments: []string{"good discovery"},
	}))
	gt.NoError(t, repo.Metrics().Upsert(ctx, &model.CallMetrics{
		SourceID: "src-2", TalkRatio: 0.8, ImprovementAreas: []string{"talked too much"},
	}))

	gt.NoError(t, uc.Learning.RefreshPatterns(ctx))

	insights, err := uc.Insight.List(ctx, interfaces.InsightFilter{Type: types.InsightPattern})
	gt.NoError(t, err)
	gt.Array(t, insights).Length(3)

	anti := 0
	for _, insight := range insights {
		gt.Value(t, insight.SampleSize).Equal(2)
		if insight.Title == "Anti-pattern to avoid" {
			anti++
			gt.Value(t, insight.Category).Equal("avoid:pitching")
		}
	}
	gt.Value(t, anti).Equal(1)
}

func TestQuickPatternSummary(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, nil)

	_, err := uc.Learning.QuickPatternSummary(ctx)
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()

	ratios := []float64{0.4, 0.5, 0.6}
	for i, ratio := range ratios {
		gt.NoError(t, repo.Metrics().Upsert(ctx, &model.CallMetrics{
			SourceID:         types.SourceID(fmt.Sprintf("src-%d", i)),
			TalkRatio:        ratio,
			NextStepsSet:     i < 2,
			StrongMoments:    []string{"Good Discovery"},
			ImprovementAreas: []string{"pacing"},
		}))
	}

	summary, err := uc.Learning.QuickPatternSummary(ctx)
	gt.NoError(t, err)
	gt.Value(t, summary.CallCount).Equal(3)
	gt.Value(t, summary.AverageTalkRatio).Equal(0.5)
	gt.Value(t, summary.NextStepsRate).Equal(2.0 / 3.0)

	// labels are case-folded and aggregated
	gt.Array(t, summary.StrongMoments).Length(1)
	gt.Value(t, summary.StrongMoments[0].Label).Equal("good discovery")
	gt.Value(t, summary.StrongMoments[0].Count).Equal(3)
}

func TestCalibrateSignalsNeedsOutcomes(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, nil)

	result, err := uc.Learning.CalibrateSignals(ctx)
	gt.NoError(t, err)
	gt.Bool(t, result.Calibrated).False()
	gt.Value(t, result.OutcomeCount).Equal(0)
	gt.Value(t, result.RequiredOutcomes).Equal(20)

	for i := 0; i < 5; i++ {
		_, err := repo.Outcome().Create(ctx, &model.Outcome{
			EntityType: types.EntityDeal, EntityID: "deal-1", OutcomeType: "meeting_booked",
		})
		gt.NoError(t, err)
	}
	result, err = uc.Learning.CalibrateSignals(ctx)
	gt.NoError(t, err)
	gt.Bool(t, result.Calibrated).False()
	gt.Value(t, result.OutcomeCount).Equal(5)
}

type recordingTrigger struct {
	outcomes    int
	transcripts int
}

func (r *recordingTrigger) OnOutcomeRecorded(context.Context)     { r.outcomes++ }
func (r *recordingTrigger) OnTranscriptProcessed(context.Context) { r.transcripts++ }

func TestRecordOutcome(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	trigger := &recordingTrigger{}
	uc := usecase.New(repo, llm.NewGateway(&llm.Mock{}), usecase.WithLearningTrigger(trigger))

	_, err := uc.Learning.RecordOutcome(ctx, &model.Outcome{EntityType: types.EntityDeal})
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
	gt.Value(t, trigger.outcomes).Equal(0)

	created, err := uc.Learning.RecordOutcome(ctx, &model.Outcome{
		EntityType: types.EntityDeal, EntityID: "deal-1", OutcomeType: "won", Value: 42000,
	})
	gt.NoError(t, err)
	gt.Value(t, string(created.ID)).NotEqual("")
	gt.Value(t, trigger.outcomes).Equal(1)

	outcomes, err := repo.Outcome().List(ctx, -1)
	gt.NoError(t, err)
	gt.Array(t, outcomes).Length(1)
}

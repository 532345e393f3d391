package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/usecase"
)

// pipelineMock answers each pipeline stage by recognizing its prompt
func pipelineMock() *llm.Mock {
	return &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			switch {
			case strings.Contains(prompt, "Split it into coherent segments"):
				return `{"segments": [
					{"content": "Tom: We need onboarding under two weeks.", "speaker": "Tom", "knowledgeType": "sales_insight", "summary": "onboarding pain"},
					{"content": "Sarah: Our rollout takes ten days on average.", "speaker": "Sarah", "knowledgeType": "product_knowledge", "summary": "rollout timeline"}
				]}`, nil
			case strings.Contains(prompt, "refine if wrong"):
				return `{"knowledgeType": "sales_insight", "confidence": 0.8, "tags": ["onboarding"]}`, nil
			case strings.Contains(prompt, "Extract the people and companies"):
				return `{
					"people": [{"name": "Tom Park", "role": "VP Operations", "company": "Globex", "relationship": "prospect"}],
					"companies": [{"name": "Globex", "isDealContext": true}]
				}`, nil
			case strings.Contains(prompt, "Analyze the seller's performance"):
				return `{"talkRatio": 0.42, "questions": {"total": 7, "openEnded": 4}, "listeningScore": 7.5,
					"strongMoments": ["good discovery"], "nextStepsSet": true}`, nil
			default:
				return `{"findings": []}`, nil
			}
		},
	}
}

func TestProcessRunsAllStages(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, pipelineMock())

	source, err := repo.Source().Create(ctx, &model.Source{
		Filename:    "call.txt",
		Content:     "Tom: We need onboarding under two weeks. Sarah: Our rollout takes ten days.",
		Fingerprint: model.Fingerprint("call"),
	})
	gt.NoError(t, err)

	result, err := uc.Source.Reprocess(ctx, source.ID, usecase.ProcessOptions{})
	gt.NoError(t, err)
	gt.Value(t, result.SegmentCount).Equal(2)
	gt.Array(t, result.PeopleLinked).Length(1)
	gt.Array(t, result.DealsLinked).Length(1)

	for _, stage := range result.Stages {
		gt.Bool(t, stage.OK).True()
	}

	// segments persisted with refined classification
	segments, err := uc.Source.Segments(ctx, source.ID)
	gt.NoError(t, err)
	gt.Array(t, segments).Length(2)
	gt.Value(t, segments[0].Knowledge).Equal(types.KnowledgeSalesInsight)

	// metrics stored for the call
	metrics, err := repo.Metrics().GetBySource(ctx, source.ID)
	gt.NoError(t, err)
	gt.Value(t, metrics).NotNil()
	gt.Value(t, metrics.TalkRatio).Equal(0.42)
	gt.Bool(t, metrics.NextStepsSet).True()

	// the source is finalized with a summary
	processed, err := uc.Source.Get(ctx, source.ID)
	gt.NoError(t, err)
	gt.Value(t, processed.ProcessedAt).NotNil()
	gt.Bool(t, strings.Contains(processed.Summary, "onboarding pain")).True()
}

func TestProcessFallsBackToStubSegments(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "not json at all", nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	source, err := repo.Source().Create(ctx, &model.Source{
		Filename:    "call.txt",
		Content:     "A long stretch of conversation about rollout plans and budget approval.",
		Fingerprint: model.Fingerprint("stub"),
	})
	gt.NoError(t, err)

	result, err := uc.Source.Reprocess(ctx, source.ID, usecase.ProcessOptions{})
	gt.NoError(t, err)
	gt.Number(t, result.SegmentCount).Greater(0)

	var segmentStage *usecase.StageResult
	for i := range result.Stages {
		if result.Stages[i].Name == "segment" {
			segmentStage = &result.Stages[i]
		}
	}
	gt.Value(t, segmentStage).NotNil()
	gt.Bool(t, segmentStage.OK).True()
	gt.Bool(t, segmentStage.Fallback).True()
}

func TestProcessSkipsStagesOnRequest(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTestUseCases(t, pipelineMock())

	source, err := repo.Source().Create(ctx, &model.Source{
		Filename:    "call.txt",
		Content:     "Sarah: quick sync, nothing new.",
		Fingerprint: model.Fingerprint("skip"),
	})
	gt.NoError(t, err)

	result, err := uc.Source.Reprocess(ctx, source.ID, usecase.ProcessOptions{
		SkipEntityExtraction: true,
		SkipMetrics:          true,
	})
	gt.NoError(t, err)
	gt.Array(t, result.PeopleLinked).Length(0)

	ran := map[string]bool{}
	for _, stage := range result.Stages {
		ran[stage.Name] = stage.Ran
	}
	gt.Bool(t, ran["segment"]).True()
	gt.Bool(t, ran["entities"]).False()
	gt.Bool(t, ran["metrics"]).False()
	// no deal context without entity extraction
	gt.Bool(t, ran["meddpicc"]).False()

	metrics, err := repo.Metrics().GetBySource(ctx, source.ID)
	gt.NoError(t, err)
	gt.Value(t, metrics).Nil()
}

func TestProcessNotifiesLearningTrigger(t *testing.T) {
	ctx := context.Background()
	trigger := &recordingTrigger{}
	uc, repo := newTestUseCases(t, pipelineMock())
	uc.SetLearningTrigger(trigger)

	source, err := repo.Source().Create(ctx, &model.Source{
		Filename:    "call.txt",
		Content:     "Sarah: quick sync.",
		Fingerprint: model.Fingerprint("trigger"),
	})
	gt.NoError(t, err)

	_, err = uc.Source.Reprocess(ctx, source.ID, usecase.ProcessOptions{})
	gt.NoError(t, err)
	gt.Value(t, trigger.transcripts).Equal(1)
}

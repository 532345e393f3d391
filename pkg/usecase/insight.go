package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/interfaces"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
)

// InsightUseCase serves and curates the machine-produced insights
type InsightUseCase struct {
	repo interfaces.Repository
}

func NewInsightUseCase(repo interfaces.Repository) *InsightUseCase {
	return &InsightUseCase{repo: repo}
}

func (uc *InsightUseCase) Get(ctx context.Context, id types.InsightID) (*model.Insight, error) {
	return uc.repo.Insight().Get(ctx, id)
}

func (uc *InsightUseCase) List(ctx context.Context, filter interfaces.InsightFilter) ([]*model.Insight, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid insight type",
			goerr.V("type", filter.Type))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid insight status",
			goerr.V("status", filter.Status))
	}
	return uc.repo.Insight().List(ctx, filter)
}

// CurrentICP returns the active customer profile insight, nil when none
// has been produced yet.
func (uc *InsightUseCase) CurrentICP(ctx context.Context) (*model.Insight, error) {
	return uc.repo.Insight().GetActiveByType(ctx, types.InsightICP)
}

// Patterns returns the active behavioral pattern insights
func (uc *InsightUseCase) Patterns(ctx context.Context) ([]*model.Insight, error) {
	return uc.repo.Insight().List(ctx, interfaces.InsightFilter{
		Type:   types.InsightPattern,
		Status: types.InsightActive,
	})
}

// Coaching returns the active coaching insights
func (uc *InsightUseCase) Coaching(ctx context.Context) ([]*model.Insight, error) {
	return uc.repo.Insight().List(ctx, interfaces.InsightFilter{
		Type:   types.InsightCoaching,
		Status: types.InsightActive,
	})
}

// InsightSummary is the per-type roll-up of active insights
type InsightSummary struct {
	ActiveByType map[types.InsightType]int `json:"activeByType"`
	Total        int                       `json:"total"`
	Latest       *model.Insight            `json:"latest,omitempty"`
}

func (uc *InsightUseCase) Summary(ctx context.Context) (*InsightSummary, error) {
	summary := &InsightSummary{ActiveByType: map[types.InsightType]int{}}
	for _, insightType := range types.AllInsightTypes() {
		insights, err := uc.repo.Insight().List(ctx, interfaces.InsightFilter{
			Type:   insightType,
			Status: types.InsightActive,
		})
		if err != nil {
			return nil, err
		}
		summary.ActiveByType[insightType] = len(insights)
		summary.Total += len(insights)
		for _, insight := range insights {
			if summary.Latest == nil || insight.CreatedAt.After(summary.Latest.CreatedAt) {
				summary.Latest = insight
			}
		}
	}
	return summary, nil
}

// Feedback records the user's verdict on an insight
func (uc *InsightUseCase) Feedback(ctx context.Context, id types.InsightID, feedback types.InsightFeedback) (*model.Insight, error) {
	if !feedback.IsValid() {
		return nil, goerr.Wrap(types.ErrInvalidInput, "invalid insight feedback",
			goerr.V("feedback", feedback))
	}
	insight, err := uc.repo.Insight().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	insight.Feedback = feedback
	return uc.repo.Insight().Update(ctx, insight)
}

// Dismiss invalidates an insight so it stops surfacing
func (uc *InsightUseCase) Dismiss(ctx context.Context, id types.InsightID) (*model.Insight, error) {
	insight, err := uc.repo.Insight().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	insight.Status = types.InsightInvalidated
	return uc.repo.Insight().Update(ctx, insight)
}

// History returns the preserved snapshots of an insight, oldest first
func (uc *InsightUseCase) History(ctx context.Context, id types.InsightID) ([]*model.InsightSnapshot, error) {
	if _, err := uc.repo.Insight().Get(ctx, id); err != nil {
		return nil, err
	}
	return uc.repo.Insight().ListSnapshots(ctx, id)
}

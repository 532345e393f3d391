package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/model"
	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

func TestAskRecordsHistory(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "You should focus on the economic buyer.", nil
		},
	}
	uc, _ := newTestUseCases(t, mock)

	resp, err := uc.Query.Ask(ctx, "How do I advance the Acme deal?")
	gt.NoError(t, err)
	gt.Value(t, resp.Response).Equal("You should focus on the economic buyer.")
	gt.Value(t, string(resp.HistoryID)).NotEqual("")

	entries, total, err := uc.Query.History(ctx, 10, 0)
	gt.NoError(t, err)
	gt.Value(t, total).Equal(1)
	gt.Value(t, entries[0].Query).Equal("How do I advance the Acme deal?")
	gt.Value(t, entries[0].Response).Equal("You should focus on the economic buyer.")
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	_, err := uc.Query.Ask(ctx, "   ")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()
}

func TestIntentDetection(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "answer", nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	_, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Globex", Status: types.DealStatusActive})
	gt.NoError(t, err)
	_, err = repo.Person().Create(ctx, &model.Person{Name: "Sarah Chen", Relationship: types.RelationshipProspect})
	gt.NoError(t, err)

	cases := []struct {
		query      string
		intent     types.QueryIntent
		confidence float64
	}{
		{"what is happening with Globex", types.IntentDealStrategy, 0.9},
		{"who is Sarah Chen", types.IntentPeopleIntel, 0.9},
		{"how do I handle the pricing objection", types.IntentObjection, 0.8},
		{"how am i doing on talk ratio", types.IntentCoaching, 0.8},
		{"tell me something interesting", types.IntentGeneral, 0.5},
	}
	for _, tc := range cases {
		resp, err := uc.Query.Ask(ctx, tc.query)
		gt.NoError(t, err)
		gt.Value(t, resp.Intent).Equal(tc.intent)
		gt.Value(t, resp.Confidence).Equal(tc.confidence)
	}
}

func TestStreamEmitsMetaTokensDone(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		StreamFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (<-chan llm.Chunk, error) {
			ch := make(chan llm.Chunk, 4)
			ch <- llm.Chunk{Text: "Focus on "}
			ch <- llm.Chunk{Text: "the champion."}
			ch <- llm.Chunk{Done: true}
			close(ch)
			return ch, nil
		},
	}
	uc, repo := newTestUseCases(t, mock)

	_, err := repo.Deal().Create(ctx, &model.Deal{CompanyName: "Globex", Status: types.DealStatusActive})
	gt.NoError(t, err)

	var events []llmQueryEvent
	for event := range uc.Query.Stream(ctx, "how do I win the Globex deal") {
		events = append(events, llmQueryEvent{event.Type, event.Content})
		if event.Type == "meta" {
			gt.Value(t, event.Intent).Equal(types.IntentDealStrategy)
			gt.Number(t, len(event.Sources)).Greater(0)
			gt.Number(t, len(event.FollowUps)).Greater(0)
		}
		if event.Type == "done" {
			gt.Value(t, string(event.HistoryID)).NotEqual("")
		}
	}

	gt.Value(t, events[0].kind).Equal("meta")
	gt.Value(t, events[len(events)-1].kind).Equal("done")
	var text strings.Builder
	for _, event := range events {
		if event.kind == "token" {
			text.WriteString(event.content)
		}
	}
	gt.Value(t, text.String()).Equal("Focus on the champion.")

	entries, _, err := uc.Query.History(ctx, 10, 0)
	gt.NoError(t, err)
	gt.Value(t, entries[0].Response).Equal("Focus on the champion.")
}

type llmQueryEvent struct {
	kind    string
	content string
}

func TestStreamEmptyQueryYieldsErrorEvent(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCases(t, nil)

	var kinds []string
	for event := range uc.Query.Stream(ctx, "") {
		kinds = append(kinds, event.Type)
	}
	gt.Array(t, kinds).Length(1)
	gt.Value(t, kinds[0]).Equal("error")
}

func TestQueryFeedback(t *testing.T) {
	ctx := context.Background()
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "answer", nil
		},
	}
	uc, _ := newTestUseCases(t, mock)

	resp, err := uc.Query.Ask(ctx, "anything on the pipeline?")
	gt.NoError(t, err)

	err = uc.Query.Feedback(ctx, resp.HistoryID, "brilliant")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, types.ErrInvalidInput)).True()

	gt.NoError(t, uc.Query.Feedback(ctx, resp.HistoryID, "helpful"))

	entries, _, err := uc.Query.History(ctx, 10, 0)
	gt.NoError(t, err)
	gt.Value(t, entries[0].Feedback).Equal("helpful")
}

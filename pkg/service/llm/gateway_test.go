package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

func TestGatewayRetry(t *testing.T) {
	t.Run("transient error retried", func(t *testing.T) {
		calls := 0
		mock := &llm.Mock{
			GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
				calls++
				if calls < 3 {
					return "", goerr.Wrap(types.ErrProviderUnavailable, "connection refused")
				}
				return "ok", nil
			},
		}

		gw := llm.NewGateway(mock, llm.WithMaxRetries(5))
		text, err := gw.Generate(context.Background(), "hello")
		gt.NoError(t, err)
		gt.Value(t, text).Equal("ok")
		gt.Value(t, calls).Equal(3)
	})

	t.Run("invalid input is not retried", func(t *testing.T) {
		calls := 0
		mock := &llm.Mock{
			GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
				calls++
				return "", goerr.Wrap(types.ErrInvalidInput, "bad prompt")
			},
		}

		gw := llm.NewGateway(mock, llm.WithMaxRetries(5))
		_, err := gw.Generate(context.Background(), "hello")
		gt.Error(t, err)
		gt.Value(t, calls).Equal(1)
	})
}

func TestGatewayGenerateJSON(t *testing.T) {
	type result struct {
		Answer string `json:"answer"`
	}

	t.Run("decodes fenced payload", func(t *testing.T) {
		mock := &llm.Mock{
			GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
				return "```json\n{\"answer\": \"42\"}\n```", nil
			},
		}

		var out result
		gw := llm.NewGateway(mock)
		gt.NoError(t, gw.GenerateJSON(context.Background(), "q", &out))
		gt.Value(t, out.Answer).Equal("42")
	})

	t.Run("truncation retried once with doubled budget", func(t *testing.T) {
		budgets := []int{}
		mock := &llm.Mock{
			GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
				options := llm.NewGenerateOptions(opts...)
				budgets = append(budgets, options.MaxTokens)
				if len(budgets) == 1 {
					return `{"answer": "cut`, nil
				}
				return `{"answer": "full"}`, nil
			},
		}

		var out result
		gw := llm.NewGateway(mock)
		gt.NoError(t, gw.GenerateJSON(context.Background(), "q", &out, llm.WithMaxTokens(100)))
		gt.Value(t, out.Answer).Equal("full")
		gt.Array(t, budgets).Equal([]int{100, 200})
	})

	t.Run("persistent truncation is a parse failure", func(t *testing.T) {
		mock := &llm.Mock{
			GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
				return `{"answer": "never closes`, nil
			},
		}

		var out result
		gw := llm.NewGateway(mock)
		err := gw.GenerateJSON(context.Background(), "q", &out)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, types.ErrParseFailure)).True()
	})
}

func TestMockStream(t *testing.T) {
	mock := &llm.Mock{
		GenerateFunc: func(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
			return "whole response", nil
		},
	}

	ch, err := mock.Stream(context.Background(), "q")
	gt.NoError(t, err).Required()

	chunks := []llm.Chunk{}
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	gt.Array(t, chunks).Length(2)
	gt.Value(t, chunks[0].Text).Equal("whole response")
	gt.Bool(t, chunks[1].Done).True()
}

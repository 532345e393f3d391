package anthropic

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

const defaultModel = "claude-sonnet-4-20250514"

// Client is the Anthropic Messages API provider
type Client struct {
	sdk   sdk.Client
	model string
}

// Option customizes the client
type Option func(*Client)

// WithModel overrides the default model
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New constructs an Anthropic client
func New(apiKey string, opts ...Option) *Client {
	client := &Client{
		sdk:   sdk.NewClient(option.WithAPIKey(apiKey)),
		model: defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

var _ llm.Client = &Client{}

func (c *Client) params(prompt string, options llm.GenerateOptions) sdk.MessageNewParams {
	return sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   int64(options.MaxTokens),
		Temperature: sdk.Float(options.Temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	options := llm.NewGenerateOptions(opts...)

	msg, err := c.sdk.Messages.New(ctx, c.params(prompt, options))
	if err != nil {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "anthropic request failed",
			goerr.V("cause", err.Error()), goerr.V("model", c.model))
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (c *Client) Stream(ctx context.Context, prompt string, opts ...llm.GenerateOption) (<-chan llm.Chunk, error) {
	options := llm.NewGenerateOptions(opts...)

	stream := c.sdk.Messages.NewStreaming(ctx, c.params(prompt, options))

	ch := make(chan llm.Chunk)
	go func() {
		defer close(ch)

		// the consumer may abandon the channel on abort; guard every
		// send so this goroutine never parks on it
		send := func(chunk llm.Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case sdk.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case sdk.TextDelta:
					if delta.Text == "" {
						continue
					}
					if !send(llm.Chunk{Text: delta.Text}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(llm.Chunk{Err: goerr.Wrap(types.ErrProviderUnavailable,
				"anthropic stream interrupted", goerr.V("cause", err.Error()))})
			return
		}
		send(llm.Chunk{Done: true})
	}()

	return ch, nil
}

func (c *Client) Status(ctx context.Context) llm.Status {
	status := llm.Status{Provider: "anthropic", Model: c.model}

	if _, err := c.sdk.Models.List(ctx, sdk.ModelListParams{Limit: sdk.Int(1)}); err != nil {
		status.Detail = err.Error()
		return status
	}

	status.Available = true
	return status
}

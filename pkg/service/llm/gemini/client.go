package gemini

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
)

// Client adapts a gollem LLM client to the gateway interface. Each
// call opens a fresh session; the application carries its own context
// in the prompt, so no session history is kept.
type Client struct {
	llmClient gollem.LLMClient
}

// New wraps a gollem client
func New(llmClient gollem.LLMClient) *Client {
	return &Client{llmClient: llmClient}
}

var _ llm.Client = &Client{}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	options := llm.NewGenerateOptions(opts...)

	sessionOpts := []gollem.SessionOption{}
	if options.JSONMode {
		sessionOpts = append(sessionOpts, gollem.WithSessionContentType(gollem.ContentTypeJSON))
	}

	session, err := c.llmClient.NewSession(ctx, sessionOpts...)
	if err != nil {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "failed to create gemini session",
			goerr.V("cause", err.Error()))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "gemini request failed",
			goerr.V("cause", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "empty gemini response")
	}

	return resp.Texts[0], nil
}

// Stream degrades to a single chunk; the session API is blocking.
func (c *Client) Stream(ctx context.Context, prompt string, opts ...llm.GenerateOption) (<-chan llm.Chunk, error) {
	text, err := c.Generate(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.Chunk, 2)
	ch <- llm.Chunk{Text: text}
	ch <- llm.Chunk{Done: true}
	close(ch)
	return ch, nil
}

func (c *Client) Status(ctx context.Context) llm.Status {
	status := llm.Status{Provider: "gemini"}

	// session creation validates credentials and reachability
	if _, err := c.llmClient.NewSession(ctx); err != nil {
		status.Detail = err.Error()
		return status
	}

	status.Available = true
	return status
}

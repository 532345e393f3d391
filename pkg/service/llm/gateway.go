package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

const (
	defaultCallTimeout = 60 * time.Second
	defaultMaxRetries  = 3
)

// Gateway wraps a provider Client with a per-call timeout and retries
// for transient provider failures. All generation in the application
// goes through a Gateway, never a raw provider client.
type Gateway struct {
	client     Client
	timeout    time.Duration
	maxRetries uint64
}

// GatewayOption customizes a Gateway
type GatewayOption func(*Gateway)

// WithCallTimeout overrides the per-call timeout
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxRetries overrides the retry cap for transient failures
func WithMaxRetries(n uint64) GatewayOption {
	return func(g *Gateway) {
		g.maxRetries = n
	}
}

// NewGateway wraps a provider client
func NewGateway(client Client, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:     client,
		timeout:    defaultCallTimeout,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate calls the provider with timeout and retry
func (g *Gateway) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	var result string

	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		text, err := g.client.Generate(callCtx, prompt, opts...)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = text
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		logging.From(ctx).Warn("retrying llm call",
			"error", err, "wait", wait.String())
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}
	return result, nil
}

// GenerateJSON generates a response, extracts its JSON payload, and
// decodes it into out. A truncated response is retried once with a
// doubled token budget.
func (g *Gateway) GenerateJSON(ctx context.Context, prompt string, out any, opts ...GenerateOption) error {
	options := NewGenerateOptions(opts...)

	raw, err := g.Generate(ctx, prompt, append(opts, WithJSONMode())...)
	if err != nil {
		return err
	}

	payload, err := ExtractJSON(raw)
	if errors.Is(err, ErrTruncated) {
		logging.From(ctx).Warn("response truncated, retrying with doubled budget",
			"max_tokens", options.MaxTokens)
		retryOpts := append(opts, WithJSONMode(), WithMaxTokens(options.MaxTokens*2))
		raw, err = g.Generate(ctx, prompt, retryOpts...)
		if err != nil {
			return err
		}
		payload, err = ExtractJSON(raw)
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return goerr.Wrap(types.ErrParseFailure, "failed to decode json response",
			goerr.V("cause", err.Error()), goerr.V("head", head(payload, 200)))
	}
	return nil
}

// Stream proxies the provider stream. No retry once tokens have been
// emitted; transient errors surface on the error chunk.
func (g *Gateway) Stream(ctx context.Context, prompt string, opts ...GenerateOption) (<-chan Chunk, error) {
	return g.client.Stream(ctx, prompt, opts...)
}

// Status probes the underlying provider
func (g *Gateway) Status(ctx context.Context) Status {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return g.client.Status(probeCtx)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, types.ErrInvalidInput) || errors.Is(err, types.ErrParseFailure) {
		return false
	}
	return true
}

package llm

import (
	"context"
)

// Chunk is one piece of a streamed response. Err is set at most once,
// on the final chunk before the channel closes.
type Chunk struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
	Err  error  `json:"-"`
}

// Status reports whether a provider is reachable
type Status struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// GenerateOptions are per-call generation parameters
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// GenerateOption customizes a single generation call
type GenerateOption func(*GenerateOptions)

// WithMaxTokens caps the response length
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}

// WithJSONMode asks the provider for a JSON object response where the
// provider supports it
func WithJSONMode() GenerateOption {
	return func(o *GenerateOptions) {
		o.JSONMode = true
	}
}

// NewGenerateOptions applies options over the defaults
func NewGenerateOptions(opts ...GenerateOption) GenerateOptions {
	options := GenerateOptions{
		MaxTokens:   2048,
		Temperature: 0.2,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Client is a text generation provider
type Client interface {
	// Generate returns the full response text for a prompt
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// Stream returns response chunks as they arrive. Providers that
	// cannot stream return the whole response as a single chunk.
	Stream(ctx context.Context, prompt string, opts ...GenerateOption) (<-chan Chunk, error)

	// Status probes provider reachability
	Status(ctx context.Context) Status
}

package llm

import (
	"context"
)

// Mock is a Client for tests. Unset functions return zero values.
type Mock struct {
	GenerateFunc func(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)
	StreamFunc   func(ctx context.Context, prompt string, opts ...GenerateOption) (<-chan Chunk, error)
	StatusFunc   func(ctx context.Context) Status

	// Prompts records every prompt passed to Generate or Stream
	Prompts []string
}

var _ Client = &Mock{}

func (m *Mock) Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, opts...)
	}
	return "", nil
}

func (m *Mock) Stream(ctx context.Context, prompt string, opts ...GenerateOption) (<-chan Chunk, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, prompt, opts...)
	}

	ch := make(chan Chunk, 2)
	text, err := "", error(nil)
	if m.GenerateFunc != nil {
		text, err = m.GenerateFunc(ctx, prompt, opts...)
	}
	if err != nil {
		ch <- Chunk{Err: err}
	} else {
		ch <- Chunk{Text: text}
		ch <- Chunk{Done: true}
	}
	close(ch)
	return ch, nil
}

func (m *Mock) Status(ctx context.Context) Status {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return Status{Provider: "mock", Available: true}
}

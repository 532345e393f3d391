package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	gollemgemini "github.com/m-mizutani/gollem/llm/gemini"
	"github.com/urfave/cli/v3"

	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm/anthropic"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm/gemini"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm/ollama"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/logging"
)

// LLM holds CLI flags for the model provider
type LLM struct {
	provider string

	ollamaURL   string
	ollamaModel string

	anthropicKey   string
	anthropicModel string

	geminiProject  string
	geminiLocation string

	callTimeout time.Duration
	maxRetries  uint64
}

// Flags returns CLI flags for LLM configuration
func (l *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-provider",
			Usage:       "LLM provider (auto, ollama, anthropic, gemini)",
			Value:       "auto",
			Sources:     cli.EnvVars("DEALBRAIN_LLM_PROVIDER"),
			Destination: &l.provider,
		},
		&cli.StringFlag{
			Name:        "ollama-url",
			Usage:       "Ollama server base URL",
			Value:       "http://localhost:11434",
			Sources:     cli.EnvVars("DEALBRAIN_OLLAMA_URL"),
			Destination: &l.ollamaURL,
		},
		&cli.StringFlag{
			Name:        "ollama-model",
			Usage:       "Ollama model name",
			Value:       "llama3.1:8b",
			Sources:     cli.EnvVars("DEALBRAIN_OLLAMA_MODEL"),
			Destination: &l.ollamaModel,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("DEALBRAIN_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY"),
			Destination: &l.anthropicKey,
		},
		&cli.StringFlag{
			Name:        "anthropic-model",
			Usage:       "Anthropic model name",
			Sources:     cli.EnvVars("DEALBRAIN_ANTHROPIC_MODEL"),
			Destination: &l.anthropicModel,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("DEALBRAIN_GEMINI_PROJECT"),
			Destination: &l.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("DEALBRAIN_GEMINI_LOCATION"),
			Destination: &l.geminiLocation,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout for a single model call",
			Value:       2 * time.Minute,
			Sources:     cli.EnvVars("DEALBRAIN_LLM_TIMEOUT"),
			Destination: &l.callTimeout,
		},
		&cli.Uint64Flag{
			Name:        "llm-retries",
			Usage:       "Retry attempts for transient provider failures",
			Value:       2,
			Sources:     cli.EnvVars("DEALBRAIN_LLM_RETRIES"),
			Destination: &l.maxRetries,
		},
	}
}

// LogValue implements slog.LogValuer for startup logging
func (l LLM) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", l.resolveProvider()),
		slog.String("ollama_url", l.ollamaURL),
		slog.Any("anthropic_key", logging.Secret(l.anthropicKey)),
	)
}

// resolveProvider picks a provider when set to auto: a configured
// Anthropic key wins, otherwise the local Ollama server.
func (l *LLM) resolveProvider() string {
	if l.provider != "auto" && l.provider != "" {
		return l.provider
	}
	if l.anthropicKey != "" {
		return "anthropic"
	}
	return "ollama"
}

// Configure builds the gateway for the resolved provider
func (l *LLM) Configure(ctx context.Context) (*llm.Gateway, error) {
	var client llm.Client

	provider := l.resolveProvider()
	switch provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithBaseURL(l.ollamaURL)}
		if l.ollamaModel != "" {
			opts = append(opts, ollama.WithModel(l.ollamaModel))
		}
		client = ollama.New(opts...)

	case "anthropic":
		if l.anthropicKey == "" {
			return nil, goerr.New("anthropic-api-key is required for the anthropic provider")
		}
		var opts []anthropic.Option
		if l.anthropicModel != "" {
			opts = append(opts, anthropic.WithModel(l.anthropicModel))
		}
		client = anthropic.New(l.anthropicKey, opts...)

	case "gemini":
		if l.geminiProject == "" {
			return nil, goerr.New("gemini-project is required for the gemini provider")
		}
		inner, err := gollemgemini.New(ctx, l.geminiProject, l.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini client")
		}
		client = gemini.New(inner)

	default:
		return nil, goerr.New("invalid LLM provider", goerr.V("provider", provider))
	}

	logging.Default().Info("LLM provider configured", "provider", provider)

	return llm.NewGateway(client,
		llm.WithCallTimeout(l.callTimeout),
		llm.WithMaxRetries(l.maxRetries),
	), nil
}

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/dealbrain-lab/dealbrain/pkg/domain/types"
	"github.com/dealbrain-lab/dealbrain/pkg/service/llm"
	"github.com/dealbrain-lab/dealbrain/pkg/utils/safe"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3.1:8b"
)

// Client speaks ollama's native generate API. Responses stream as
// newline-delimited JSON objects.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the ollama client
type Option func(*Client)

// WithBaseURL overrides the default server address
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithModel overrides the default model
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs an ollama client
func New(opts ...Option) *Client {
	client := &Client{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		// generation can legitimately run for minutes on local
		// hardware; the gateway enforces the per-call deadline
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

var _ llm.Client = &Client{}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format,omitempty"`
	Options generateOptions `json:"options,omitempty"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *Client) newRequest(ctx context.Context, prompt string, stream bool, options llm.GenerateOptions) (*http.Request, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: stream,
		Options: generateOptions{
			NumPredict:  options.MaxTokens,
			Temperature: options.Temperature,
		},
	}
	if options.JSONMode {
		reqBody.Format = "json"
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode generate request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(encoded))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build generate request")
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	options := llm.NewGenerateOptions(opts...)

	req, err := c.newRequest(ctx, prompt, false, options)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "ollama request failed",
			goerr.V("cause", err.Error()), goerr.V("base_url", c.baseURL))
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "failed to read ollama response",
			goerr.V("cause", err.Error()))
	}
	if resp.StatusCode != http.StatusOK {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "ollama returned error status",
			goerr.V("status", resp.StatusCode), goerr.V("body", strings.TrimSpace(string(body))))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", goerr.Wrap(err, "failed to decode ollama response")
	}
	if decoded.Error != "" {
		return "", goerr.Wrap(types.ErrProviderUnavailable, "ollama reported error",
			goerr.V("detail", decoded.Error))
	}

	return decoded.Response, nil
}

func (c *Client) Stream(ctx context.Context, prompt string, opts ...llm.GenerateOption) (<-chan llm.Chunk, error) {
	options := llm.NewGenerateOptions(opts...)

	req, err := c.newRequest(ctx, prompt, true, options)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(types.ErrProviderUnavailable, "ollama request failed",
			goerr.V("cause", err.Error()), goerr.V("base_url", c.baseURL))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		safe.Close(ctx, resp.Body)
		return nil, goerr.Wrap(types.ErrProviderUnavailable, "ollama returned error status",
			goerr.V("status", resp.StatusCode), goerr.V("body", strings.TrimSpace(string(body))))
	}

	ch := make(chan llm.Chunk)
	go func() {
		defer close(ch)
		defer safe.Close(ctx, resp.Body)

		// every send competes with consumer abort; an unguarded send
		// on an abandoned channel would park this goroutine and its
		// connection forever
		send := func(chunk llm.Chunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var decoded generateResponse
			if err := json.Unmarshal(line, &decoded); err != nil {
				send(llm.Chunk{Err: goerr.Wrap(err, "failed to decode stream line")})
				return
			}
			if decoded.Error != "" {
				send(llm.Chunk{Err: goerr.Wrap(types.ErrProviderUnavailable,
					"ollama reported error", goerr.V("detail", decoded.Error))})
				return
			}

			if decoded.Response != "" && !send(llm.Chunk{Text: decoded.Response}) {
				return
			}
			if decoded.Done {
				send(llm.Chunk{Done: true})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(llm.Chunk{Err: goerr.Wrap(types.ErrProviderUnavailable,
				"ollama stream interrupted", goerr.V("cause", err.Error()))})
		}
	}()

	return ch, nil
}

func (c *Client) Status(ctx context.Context) llm.Status {
	status := llm.Status{Provider: "ollama", Model: c.model}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		status.Detail = err.Error()
		return status
	}

	probe := &http.Client{Timeout: 5 * time.Second}
	resp, err := probe.Do(req)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		status.Detail = resp.Status
		return status
	}

	status.Available = true
	return status
}

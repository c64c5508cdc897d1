package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docsum-backend/internal/llm"
)

const (
	openRouterReferer = "http://localhost:3000"
	openRouterTitle   = "AI Document Summarizer"
)

// Options configures the chat completions client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// JSONMode sends response_format=json_object when the request asks for JSON.
	JSONMode bool
}

// Client implements llm.Client using an OpenAI-compatible chat completions API
// (OpenAI itself or OpenRouter).
type Client struct {
	client   *openai.Client
	model    string
	provider string
	jsonMode bool
}

// NewClient constructs a chat completions client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	provider := "openai"
	var transport http.RoundTripper = http.DefaultTransport
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
		if strings.Contains(base, "openrouter.ai") {
			provider = "openrouter"
			transport = headerTransport{base: transport, headers: map[string]string{
				"HTTP-Referer": openRouterReferer,
				"X-Title":      openRouterTitle,
			}}
		}
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout, Transport: transport}

	return &Client{
		client:   openai.NewClientWithConfig(cfg),
		model:    opts.Model,
		provider: provider,
		jsonMode: opts.JSONMode,
	}, nil
}

// Complete sends the system and user prompt and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	oReq := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}
	// gpt-5 family rejects non-default temperature
	if !isGPT5(c.model) {
		oReq.Temperature = float32(req.Temperature)
	}
	if req.JSON && c.jsonMode {
		oReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return "", c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", c.provider, llm.ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%s: %w", c.provider, llm.ErrEmptyResponse)
	}
	return content, nil
}

func (c *Client) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &llm.StatusError{Provider: c.provider, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &llm.StatusError{Provider: c.provider, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return fmt.Errorf("%s chat: %w", c.provider, err)
}

// isGPT5 also accepts vendor-prefixed OpenRouter ids such as "openai/gpt-5-mini".
func isGPT5(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if idx := strings.LastIndex(m, "/"); idx >= 0 {
		m = m[idx+1:]
	}
	return strings.HasPrefix(m, "gpt-5")
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range t.headers {
		clone.Header.Set(k, v)
	}
	return t.base.RoundTrip(clone)
}

var _ llm.Client = (*Client)(nil)

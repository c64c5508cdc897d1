package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"docsum-backend/internal/llm"
)

type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client implements llm.Client on the Gemini API. The underlying SDK client is
// built on first use.
type Client struct {
	opts    Options
	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	return &Client{opts: opts}, nil
}

func (c *Client) ensureClient(ctx context.Context) error {
	c.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:  c.opts.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if c.opts.BaseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.opts.BaseURL}
		}
		c.client, c.initErr = genai.NewClient(ctx, cfg)
	})
	return c.initErr
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := c.ensureClient(ctx); err != nil {
		return "", fmt.Errorf("gemini: client init failed: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.opts.Model, genai.Text(req.User), cfg)
	if err != nil {
		return "", wrapError(err)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}
	return content, nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code > 0 {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code > 0 {
		return &llm.StatusError{Provider: "gemini", StatusCode: apiErrPtr.Code, Err: err}
	}
	return fmt.Errorf("gemini: %w", err)
}

var _ llm.Client = (*Client)(nil)

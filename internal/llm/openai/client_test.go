package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"docsum-backend/internal/llm"
)

func TestIsGPT5(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  bool
	}{
		{name: "gpt5", model: "gpt-5", want: true},
		{name: "gpt5 variant", model: "gpt-5-mini", want: true},
		{name: "gpt5 uppercase", model: " GPT-5o ", want: true},
		{name: "openrouter prefixed", model: "openai/gpt-5-mini", want: true},
		{name: "gpt4", model: "gpt-4o", want: false},
		{name: "openrouter gpt4", model: "openai/gpt-4o-mini", want: false},
		{name: "empty", model: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := isGPT5(tt.model); got != tt.want {
				t.Fatalf("isGPT5(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

type capture struct {
	mu      sync.Mutex
	path    string
	body    map[string]any
	referer string
	title   string
	auth    string
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		c.mu.Lock()
		c.path = r.URL.Path
		c.body = payload
		c.referer = r.Header.Get("HTTP-Referer")
		c.title = r.Header.Get("X-Title")
		c.auth = r.Header.Get("Authorization")
		c.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, c
}

func TestCompleteSendsPromptAndSettings(t *testing.T) {
	server, got := newServer(t, http.StatusOK, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" {\"summary\":\"S\"} "},"finish_reason":"stop"}]}`)

	client, err := NewClient(Options{APIKey: "sk-test", Model: "openai/gpt-4o-mini", BaseURL: server.URL + "/api/v1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	out, err := client.Complete(context.Background(), llm.Request{
		System:      "be strict",
		User:        "analyze this",
		Temperature: 0.3,
		MaxTokens:   1000,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"summary":"S"}` {
		t.Fatalf("unexpected content %q", out)
	}

	got.mu.Lock()
	defer got.mu.Unlock()
	if got.path != "/api/v1/chat/completions" {
		t.Fatalf("unexpected path %q", got.path)
	}
	if got.auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", got.auth)
	}
	if got.body["model"] != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected model %v", got.body["model"])
	}
	if temp, ok := got.body["temperature"].(float64); !ok || temp < 0.29 || temp > 0.31 {
		t.Fatalf("unexpected temperature %v", got.body["temperature"])
	}
	if got.body["max_tokens"] != float64(1000) {
		t.Fatalf("unexpected max_tokens %v", got.body["max_tokens"])
	}
	if _, ok := got.body["response_format"]; ok {
		t.Fatalf("response_format must not be sent without JSONMode")
	}
	msgs, ok := got.body["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", got.body["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be strict" {
		t.Fatalf("unexpected system message %v", first)
	}
}

func TestOpenRouterBaseURLSelectsProvider(t *testing.T) {
	client, err := NewClient(Options{APIKey: "k", Model: "m", BaseURL: "https://openrouter.ai/api/v1/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.provider != "openrouter" {
		t.Fatalf("expected openrouter provider, got %q", client.provider)
	}
}

func TestHeaderTransportAddsOpenRouterHeaders(t *testing.T) {
	server, got := newServer(t, http.StatusOK, `{}`)

	rt := headerTransport{base: http.DefaultTransport, headers: map[string]string{"HTTP-Referer": openRouterReferer, "X-Title": openRouterTitle}}
	req, err := http.NewRequest(http.MethodPost, server.URL+"/chat/completions", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()

	got.mu.Lock()
	defer got.mu.Unlock()
	if got.referer != openRouterReferer || got.title != openRouterTitle {
		t.Fatalf("missing openrouter headers: referer=%q title=%q", got.referer, got.title)
	}
	if req.Header.Get("X-Title") != "" {
		t.Fatalf("original request must not be mutated")
	}
}

func TestCompleteJSONModeAndGPT5Temperature(t *testing.T) {
	server, got := newServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"{}"}}]}`)

	client, err := NewClient(Options{APIKey: "k", Model: "gpt-5-mini", BaseURL: server.URL, JSONMode: true})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Complete(context.Background(), llm.Request{User: "u", Temperature: 0.3, JSON: true}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got.mu.Lock()
	defer got.mu.Unlock()
	if _, ok := got.body["temperature"]; ok {
		t.Fatalf("temperature must be omitted for gpt-5 models")
	}
	format, ok := got.body["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", got.body["response_format"])
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`)

	client, err := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{User: "u"})
	if !errors.Is(err, llm.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestCompleteServerErrorIsRetryable(t *testing.T) {
	server, _ := newServer(t, http.StatusBadGateway, `{"error":{"message":"upstream down","type":"server_error"}}`)

	client, err := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{User: "u"})
	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %T %v", err, err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || !llm.ShouldRetry(err) {
		t.Fatalf("expected retryable 502, got %+v", statusErr)
	}
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing model error")
	}
}

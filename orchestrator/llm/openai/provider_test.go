// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genaikit/orchestrator/llm"
)

const completionBody = `{
  "id": "chatcmpl-123",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-3.5-turbo-0125",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Hello there!", "refusal": null},
    "finish_reason": "stop",
    "logprobs": null
  }],
  "usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
}`

type capturedRequest struct {
	path   string
	auth   string
	body   map[string]any
	method string
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.method = r.Method
		captured.auth = r.Header.Get("Authorization")
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				_ = json.Unmarshal(raw, &captured.body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := NewProvider(Config{APIKey: "sk-test", BaseURL: baseURL})
	require.NoError(t, err)
	return p
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.EqualError(t, err, "openai API key is required")

	p, err := NewProvider(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.DefaultModel())
	assert.Equal(t, llm.ProviderOpenAI, p.Type())
	assert.Equal(t, "openai", p.Name())
	assert.Contains(t, p.Models(), ModelGPT4)
	assert.Contains(t, p.Models(), ModelGPT35Turbo16K)
	assert.Equal(t, llm.StandardDefaults(), p.defaults)
}

func TestGenerate(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, completionBody)
	p := newTestProvider(t, srv.URL)

	resp, err := p.Generate(context.Background(), "Say hi", llm.Options{
		SystemPrompt: "You are terse.",
		Temperature:  llm.Float(0),
		MaxTokens:    42,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", resp.Text)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Equal(t, &llm.Usage{PromptTokens: 9, CompletionTokens: 3, TotalTokens: 12}, resp.Usage)
	assert.Equal(t, "stop", resp.Metadata["finish_reason"])
	assert.Equal(t, "chatcmpl-123", resp.Metadata["response_id"])

	assert.Equal(t, "/chat/completions", captured.path)
	assert.Equal(t, "Bearer sk-test", captured.auth)
	assert.Equal(t, DefaultModel, captured.body["model"])
	assert.EqualValues(t, 42, captured.body["max_tokens"])
	assert.EqualValues(t, 0, captured.body["temperature"])
	assert.EqualValues(t, 0.9, captured.body["top_p"])

	msgs, ok := captured.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestChat(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, completionBody)
	p := newTestProvider(t, srv.URL)

	resp, err := p.Chat(context.Background(), []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "how are you"},
	}, llm.Options{Model: ModelGPT4})
	require.NoError(t, err)
	assert.Equal(t, ModelGPT4, resp.Model)

	msgs := captured.body["messages"].([]any)
	require.Len(t, msgs, 4)
	roles := make([]string, 0, len(msgs))
	for _, m := range msgs {
		roles = append(roles, m.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.EqualValues(t, 1000, captured.body["max_tokens"])
	assert.EqualValues(t, 0.7, captured.body["temperature"])
}

func TestGenerateAPIErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"unauthorized", http.StatusUnauthorized, llm.ErrCodeAuth},
		{"rate limited", http.StatusTooManyRequests, llm.ErrCodeRateLimit},
		{"server error", http.StatusInternalServerError, llm.ErrCodeServerError},
		{"bad request", http.StatusBadRequest, llm.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, `{"error":{"message":"nope","type":"invalid_request_error","code":"x"}}`)
			p := newTestProvider(t, srv.URL)

			_, err := p.Generate(context.Background(), "hi", llm.Options{})
			require.Error(t, err)
			var pe *llm.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Contains(t, pe.Message, "openai generation failed")
		})
	}
}

func TestChatErrorPrefix(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusBadRequest, `{"error":{"message":"bad"}}`)
	p := newTestProvider(t, srv.URL)
	_, err := p.Chat(context.Background(), []llm.ChatMessage{{Role: llm.RoleUser, Content: "x"}}, llm.Options{})
	assert.ErrorContains(t, err, "openai chat completion failed")
}

func TestEmptyChoices(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","choices":[],"usage":{}}`)
	p := newTestProvider(t, srv.URL)
	_, err := p.Generate(context.Background(), "hi", llm.Options{})
	assert.ErrorContains(t, err, "no choices")
}

func TestHealthCheck(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"object":"list","data":[{"id":"gpt-4","object":"model","created":1,"owned_by":"openai"}]}`)
	p := newTestProvider(t, srv.URL)

	result, err := p.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Healthy())
	assert.Equal(t, "/models", captured.path)
	assert.Equal(t, http.MethodGet, captured.method)

	bad, _ := newTestServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
	result, err = newTestProvider(t, bad.URL).HealthCheck(context.Background())
	assert.Error(t, err)
	assert.False(t, result.Healthy())
}

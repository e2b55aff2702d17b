// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genaikit/orchestrator/llm"
)

// mockHTTPClient is a mock HTTP client for testing.
type mockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func jsonResponse(status int, v any) *http.Response {
	body, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     make(http.Header),
	}
}

// Helper to create a successful response.
func successResponse(content string, inputTokens, outputTokens int) *http.Response {
	return jsonResponse(http.StatusOK, geminiResponse{
		Candidates: []geminiCandidate{{
			Content:      geminiContent{Parts: []geminiPart{{Text: content}}, Role: "model"},
			FinishReason: "STOP",
			SafetyRatings: []safetyRating{
				{Category: "HARM_CATEGORY_HARASSMENT", Probability: "NEGLIGIBLE"},
			},
		}},
		UsageMetadata: &geminiUsageMetadata{
			PromptTokenCount:     inputTokens,
			CandidatesTokenCount: outputTokens,
			TotalTokenCount:      inputTokens + outputTokens,
		},
	})
}

// Helper to create an error response.
func errorResponse(statusCode int, message, status string) *http.Response {
	return jsonResponse(statusCode, map[string]any{
		"error": map[string]any{"code": statusCode, "message": message, "status": status},
	})
}

func newTestProvider(t *testing.T, do func(*http.Request) (*http.Response, error)) *Provider {
	t.Helper()
	p, err := NewProvider(Config{APIKey: "test-key"})
	require.NoError(t, err)
	p.SetHTTPClient(&mockHTTPClient{DoFunc: do})
	return p
}

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(Config{})
	assert.EqualError(t, err, "gemini API key is required")

	p, err := NewProvider(Config{APIKey: "k", BaseURL: "https://custom.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, p.DefaultModel())
	assert.Equal(t, "https://custom.example.com", p.baseURL)
	assert.Equal(t, DefaultAPIVersion, p.apiVersion)
	assert.Equal(t, llm.ProviderGemini, p.Type())
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, []string{"gemini-pro", "gemini-pro-vision", "gemini-1.5-pro", "gemini-1.5-flash", "gemini-2.0-flash"}, p.Models())
}

func TestGenerate(t *testing.T) {
	var captured *http.Request
	var body map[string]any
	p := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		body = decodeBody(t, req)
		return successResponse("Gemini says hi", 8, 4), nil
	})

	resp, err := p.Generate(context.Background(), "hello", llm.Options{
		SystemPrompt: "be nice",
		MaxTokens:    77,
		Temperature:  llm.Float(0),
	})
	require.NoError(t, err)

	assert.Equal(t, "Gemini says hi", resp.Text)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, DefaultModel, resp.Model)
	assert.Equal(t, &llm.Usage{PromptTokens: 8, CompletionTokens: 4, TotalTokens: 12}, resp.Usage)
	assert.Equal(t, "STOP", resp.Metadata["finish_reason"])
	assert.Equal(t, []map[string]string{{"category": "HARM_CATEGORY_HARASSMENT", "probability": "NEGLIGIBLE"}},
		resp.Metadata["safety_ratings"])

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", captured.URL.Path)
	assert.Equal(t, "test-key", captured.URL.Query().Get("key"))

	cfg := body["generationConfig"].(map[string]any)
	assert.EqualValues(t, 77, cfg["maxOutputTokens"])
	assert.EqualValues(t, 0, cfg["temperature"])
	assert.EqualValues(t, 0.9, cfg["topP"])

	sys := body["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	assert.Equal(t, "be nice", sys["text"])
	contents := body["contents"].([]any)
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].(map[string]any)["role"])
}

func TestChatRoleConversion(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
		body = decodeBody(t, req)
		return successResponse("ok", 1, 1), nil
	})

	_, err := p.Chat(context.Background(), []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "q1"},
		{Role: llm.RoleAssistant, Content: "a1"},
		{Role: llm.RoleUser, Content: "q2"},
	}, llm.Options{Model: ModelGemini15Pro})
	require.NoError(t, err)

	contents := body["contents"].([]any)
	roles := make([]string, 0, len(contents))
	for _, c := range contents {
		roles = append(roles, c.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"user", "model", "user"}, roles)
	assert.Contains(t, body, "systemInstruction")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		resp     *http.Response
		doErr    error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "bad key",
			resp:     errorResponse(http.StatusBadRequest, "API key not valid", "INVALID_ARGUMENT"),
			wantCode: llm.ErrCodeInvalidRequest,
			wantMsg:  "API key not valid",
		},
		{
			name:     "quota",
			resp:     errorResponse(http.StatusTooManyRequests, "quota", "RESOURCE_EXHAUSTED"),
			wantCode: llm.ErrCodeRateLimit,
		},
		{
			name:     "forbidden",
			resp:     errorResponse(http.StatusForbidden, "denied", "PERMISSION_DENIED"),
			wantCode: llm.ErrCodeAuth,
		},
		{
			name:     "non json error body",
			resp:     &http.Response{StatusCode: 502, Body: io.NopCloser(strings.NewReader("bad gateway")), Header: http.Header{}},
			wantCode: llm.ErrCodeServerError,
			wantMsg:  "bad gateway",
		},
		{
			name:     "no candidates",
			resp:     jsonResponse(http.StatusOK, map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}}),
			wantCode: llm.ErrCodeServerError,
			wantMsg:  "prompt blocked: SAFETY",
		},
		{
			name:     "transport error hides key",
			doErr:    &url.Error{Op: "Post", URL: "https://x/models?key=test-key", Err: errors.New("dial tcp: refused")},
			wantCode: llm.ErrCodeServerError,
			wantMsg:  "dial tcp: refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(*http.Request) (*http.Response, error) {
				return tt.resp, tt.doErr
			})
			_, err := p.Generate(context.Background(), "hi", llm.Options{})
			require.Error(t, err)

			var pe *llm.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantCode, pe.Code)
			assert.Contains(t, pe.Message, "gemini generation failed")
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.NotContains(t, err.Error(), "test-key")
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		resp    *http.Response
		healthy bool
	}{
		{"models listed", jsonResponse(http.StatusOK, map[string]any{"models": []map[string]string{{"name": "models/gemini-pro"}}}), true},
		{"empty list", jsonResponse(http.StatusOK, map[string]any{"models": []any{}}), false},
		{"unauthorized", errorResponse(http.StatusUnauthorized, "bad", "UNAUTHENTICATED"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			p := newTestProvider(t, func(req *http.Request) (*http.Response, error) {
				path = req.URL.Path
				return tt.resp, nil
			})
			result, err := p.HealthCheck(context.Background())
			assert.Equal(t, "/v1beta/models", path)
			assert.Equal(t, tt.healthy, result.Healthy())
			assert.Equal(t, tt.healthy, err == nil)
		})
	}
}

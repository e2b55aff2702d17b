// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package gemini adapts the Google Generative Language REST API to
// llm.Provider.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"genaikit/orchestrator/llm"
)

const (
	// DefaultBaseURL is the default Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultAPIVersion is the Gemini API version.
	DefaultAPIVersion = "v1beta"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 60 * time.Second
)

// Model constants for supported Gemini models.
const (
	ModelGeminiPro       = "gemini-pro"
	ModelGeminiProVision = "gemini-pro-vision"
	ModelGemini15Pro     = "gemini-1.5-pro"
	ModelGemini15Flash   = "gemini-1.5-flash"
	ModelGemini2Flash    = "gemini-2.0-flash"

	DefaultModel = ModelGemini15Flash
)

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey     string        // Required: Google API key
	BaseURL    string        // Optional: API base URL
	APIVersion string        // Optional: API version (default: v1beta)
	Model      string        // Optional: default model (default: gemini-1.5-flash)
	Timeout    time.Duration // Optional: HTTP timeout (default: 60s)
	Defaults   llm.Defaults  // Optional: sampling defaults
}

// Provider implements llm.Provider for Google Gemini.
type Provider struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	defaults   llm.Defaults
	client     HTTPClient
}

// NewProvider creates a new Gemini provider instance.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Defaults.MaxTokens == 0 {
		cfg.Defaults = llm.StandardDefaults()
	}

	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion: cfg.APIVersion,
		model:      cfg.Model,
		defaults:   cfg.Defaults,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SetHTTPClient sets a custom HTTP client for testing.
func (p *Provider) SetHTTPClient(client HTTPClient) {
	p.client = client
}

// Name returns the registry key, which is also the provider_name reported
// by GET /providers.
func (p *Provider) Name() string { return string(llm.ProviderGemini) }

// Type returns llm.ProviderGemini.
func (p *Provider) Type() llm.ProviderType { return llm.ProviderGemini }

// DefaultModel returns the model used when none is requested.
func (p *Provider) DefaultModel() string { return p.model }

// Models returns the advertised Gemini models.
func (p *Provider) Models() []string {
	return []string{
		ModelGeminiPro,
		ModelGeminiProVision,
		ModelGemini15Pro,
		ModelGemini15Flash,
		ModelGemini2Flash,
	}
}

// Generate produces a completion for one prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.GenerationResponse, error) {
	resp, err := p.generateContent(ctx, llm.PromptMessages(prompt, opts.SystemPrompt), opts)
	if err != nil {
		return nil, wrapError("generation failed", err)
	}
	return resp, nil
}

// Chat converts the conversation to Gemini contents: assistant turns become
// "model" turns and system messages become the system instruction.
func (p *Provider) Chat(ctx context.Context, messages []llm.ChatMessage, opts llm.Options) (*llm.GenerationResponse, error) {
	resp, err := p.generateContent(ctx, messages, opts)
	if err != nil {
		return nil, wrapError("chat completion failed", err)
	}
	return resp, nil
}

func (p *Provider) generateContent(ctx context.Context, messages []llm.ChatMessage, opts llm.Options) (*llm.GenerationResponse, error) {
	params := p.defaults.Resolve(opts, p.model)

	reqBody, err := json.Marshal(buildAPIRequest(messages, params))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		p.baseURL, p.apiVersion, url.PathEscape(params.Model), url.QueryEscape(p.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, stripURL(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var apiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return toResponse(&apiResp, params.Model)
}

func toResponse(apiResp *geminiResponse, model string) (*llm.GenerationResponse, error) {
	if len(apiResp.Candidates) == 0 {
		if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("prompt blocked: %s", apiResp.PromptFeedback.BlockReason)
		}
		return nil, errors.New("response contained no candidates")
	}

	candidate := apiResp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}

	ratings := make([]map[string]string, 0, len(candidate.SafetyRatings))
	for _, r := range candidate.SafetyRatings {
		ratings = append(ratings, map[string]string{"category": r.Category, "probability": r.Probability})
	}

	out := &llm.GenerationResponse{
		Text:     text.String(),
		Provider: string(llm.ProviderGemini),
		Model:    model,
		Metadata: map[string]any{
			"finish_reason":  candidate.FinishReason,
			"safety_ratings": ratings,
		},
	}
	if u := apiResp.UsageMetadata; u != nil {
		out.Usage = llm.NewUsage(u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount)
	}
	return out, nil
}

// buildAPIRequest builds the Gemini API request body.
func buildAPIRequest(messages []llm.ChatMessage, p llm.Params) map[string]any {
	contents := make([]map[string]any, 0, len(messages))
	var system []string
	for _, m := range messages {
		role := "user"
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
			continue
		case llm.RoleAssistant:
			role = "model"
		}
		contents = append(contents, map[string]any{
			"role":  role,
			"parts": []map[string]any{{"text": m.Content}},
		})
	}

	apiReq := map[string]any{
		"contents": contents,
		"generationConfig": map[string]any{
			"maxOutputTokens": p.MaxTokens,
			"temperature":     p.Temperature,
			"topP":            p.TopP,
		},
	}
	if len(system) > 0 {
		apiReq["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": strings.Join(system, "\n")}},
		}
	}
	return apiReq
}

// HealthCheck lists models; healthy iff at least one is returned.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthCheckResult, error) {
	start := time.Now()
	err := p.listModels(ctx)
	if err != nil {
		err = wrapError("health check failed", err)
	}
	return llm.NewHealthResult(start, err), err
}

func (p *Provider) listModels(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s/models?key=%s", p.baseURL, p.apiVersion, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return stripURL(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return parseAPIError(resp.StatusCode, body)
	}

	var list struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return fmt.Errorf("failed to decode model list: %w", err)
	}
	if len(list.Models) == 0 {
		return errors.New("no models available")
	}
	return nil
}

// stripURL drops the request URL from transport errors; it carries the API key.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s request failed: %w", uerr.Op, uerr.Err)
	}
	return err
}

// parseAPIError parses an API error response.
func parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{
		StatusCode: statusCode,
		Code:       errResp.Error.Code,
		Status:     errResp.Error.Status,
		Message:    errResp.Error.Message,
	}
}

// APIError represents a Gemini API error.
type APIError struct {
	StatusCode int
	Code       int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("gemini API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini API error (status %d, %s): %s", e.StatusCode, e.Status, e.Message)
}

func wrapError(op string, err error) error {
	status := 0
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		// quota exhaustion is reported as 429 with RESOURCE_EXHAUSTED
		if apiErr.Status == "RESOURCE_EXHAUSTED" {
			status = http.StatusTooManyRequests
		}
	}
	return llm.WrapError(string(llm.ProviderGemini), op, status, err)
}

type geminiResponse struct {
	Candidates     []geminiCandidate    `json:"candidates,omitempty"`
	UsageMetadata  *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiCandidate struct {
	Content       geminiContent  `json:"content"`
	FinishReason  string         `json:"finishReason,omitempty"`
	Index         int            `json:"index"`
	SafetyRatings []safetyRating `json:"safetyRatings,omitempty"`
}

type safetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package openai adapts the OpenAI chat completions API to llm.Provider.
package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"genaikit/orchestrator/llm"
)

// Model constants for supported OpenAI models.
const (
	ModelGPT4          = "gpt-4"
	ModelGPT4TurboPrev = "gpt-4-turbo-preview"
	ModelGPT35Turbo    = "gpt-3.5-turbo"
	ModelGPT35Turbo16K = "gpt-3.5-turbo-16k"
	ModelGPT4o         = "gpt-4o"
	ModelGPT4oMini     = "gpt-4o-mini"

	DefaultModel = ModelGPT35Turbo
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 60 * time.Second

// Config contains configuration for the OpenAI provider.
type Config struct {
	APIKey   string        // Required
	BaseURL  string        // Optional: alternate endpoint (proxies, compatible servers)
	Model    string        // Optional: default model (gpt-3.5-turbo)
	Timeout  time.Duration // Optional: per-request timeout (60s)
	Defaults llm.Defaults  // Optional: sampling defaults
}

// Provider implements llm.Provider using github.com/openai/openai-go.
type Provider struct {
	client   sdk.Client
	model    string
	defaults llm.Defaults
}

// NewProvider creates a new OpenAI provider instance.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
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

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &Provider{
		client:   sdk.NewClient(opts...),
		model:    cfg.Model,
		defaults: cfg.Defaults,
	}, nil
}

// Name returns the registry key, which is also the provider_name reported
// by GET /providers.
func (p *Provider) Name() string { return string(llm.ProviderOpenAI) }

// Type returns llm.ProviderOpenAI.
func (p *Provider) Type() llm.ProviderType { return llm.ProviderOpenAI }

// DefaultModel returns the model used when none is requested.
func (p *Provider) DefaultModel() string { return p.model }

// Models returns the advertised OpenAI chat models.
func (p *Provider) Models() []string {
	return []string{
		ModelGPT4,
		ModelGPT4TurboPrev,
		ModelGPT35Turbo,
		ModelGPT35Turbo16K,
		ModelGPT4o,
		ModelGPT4oMini,
	}
}

// Generate sends the prompt (and optional system prompt) as a chat completion.
func (p *Provider) Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.GenerationResponse, error) {
	resp, err := p.complete(ctx, llm.PromptMessages(prompt, opts.SystemPrompt), opts)
	if err != nil {
		return nil, wrapError("generation failed", err)
	}
	return resp, nil
}

// Chat sends the conversation as-is.
func (p *Provider) Chat(ctx context.Context, messages []llm.ChatMessage, opts llm.Options) (*llm.GenerationResponse, error) {
	resp, err := p.complete(ctx, messages, opts)
	if err != nil {
		return nil, wrapError("chat completion failed", err)
	}
	return resp, nil
}

func (p *Provider) complete(ctx context.Context, messages []llm.ChatMessage, opts llm.Options) (*llm.GenerationResponse, error) {
	params := p.defaults.Resolve(opts, p.model)

	completion, err := p.client.Chat.Completions.New(ctx, sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(params.Model),
		Messages:    toMessages(messages),
		MaxTokens:   sdk.Int(int64(params.MaxTokens)),
		Temperature: sdk.Float(params.Temperature),
		TopP:        sdk.Float(params.TopP),
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("response contained no choices")
	}

	choice := completion.Choices[0]
	return &llm.GenerationResponse{
		Text:     choice.Message.Content,
		Provider: string(llm.ProviderOpenAI),
		Model:    params.Model,
		Usage: llm.NewUsage(
			int(completion.Usage.PromptTokens),
			int(completion.Usage.CompletionTokens),
			int(completion.Usage.TotalTokens),
		),
		Metadata: map[string]any{
			"finish_reason": string(choice.FinishReason),
			"response_id":   completion.ID,
		},
	}, nil
}

// HealthCheck lists models; the provider is healthy iff the call succeeds.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthCheckResult, error) {
	start := time.Now()
	_, err := p.client.Models.List(ctx)
	if err != nil {
		err = wrapError("health check failed", err)
	}
	return llm.NewHealthResult(start, err), err
}

func toMessages(messages []llm.ChatMessage) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case llm.RoleAssistant:
			out = append(out, sdk.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			out = append(out, sdk.UserMessage(m.Content))
		}
	}
	return out
}

func wrapError(op string, err error) error {
	status := 0
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return llm.WrapError(string(llm.ProviderOpenAI), op, status, err)
}

// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
	"genaikit/shared/config"
	"genaikit/shared/logger"
)

// ProviderDetails describes one configured provider.
type ProviderDetails struct {
	Available    bool     `json:"available"`
	Models       []string `json:"models"`
	ProviderName string   `json:"provider_name"`
}

// Client routes generation calls to the configured providers.
type Client struct {
	providers map[llm.ProviderType]llm.Provider
	history   history.Store
	log       *logger.Logger
	timeout   time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHistory records successful calls in store.
func WithHistory(store history.Store) ClientOption {
	return func(c *Client) {
		if store != nil {
			c.history = store
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTimeout bounds every provider call. Zero disables the bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient resolves secrets, opens the history store and initializes every
// provider the settings allow. It only fails when secret resolution fails;
// providers and history that cannot be set up are logged and skipped.
func NewClient(ctx context.Context, cfg *config.Settings, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := newClient(opts...)
	if c.timeout == 0 {
		c.timeout = cfg.RequestTimeout
	}

	if cfg.NeedsSecrets() {
		sm, err := config.NewAWSSecretsManager(ctx, cfg.AWSRegion, 5*time.Minute, c.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize secrets manager: %w", err)
		}
		if err := cfg.ResolveSecrets(ctx, sm); err != nil {
			return nil, fmt.Errorf("failed to resolve provider API keys: %w", err)
		}
	}

	if c.history == nil {
		store, err := history.Open(ctx, cfg)
		if err != nil {
			c.log.Warn("", "History store unavailable, continuing without history", map[string]interface{}{
				"backend": cfg.HistoryBackend,
				"error":   err.Error(),
			})
			store = history.NopStore{}
		}
		c.history = store
	}

	for _, p := range initProviders(ctx, cfg, c.log) {
		c.providers[p.Type()] = p
	}
	c.logProviderStatus()
	return c, nil
}

// NewClientWithProviders builds a client around already constructed adapters.
func NewClientWithProviders(providers []llm.Provider, opts ...ClientOption) *Client {
	c := newClient(opts...)
	if c.history == nil {
		c.history = history.NopStore{}
	}
	for _, p := range providers {
		c.providers[p.Type()] = p
	}
	return c
}

func newClient(opts ...ClientOption) *Client {
	c := &Client{
		providers: make(map[llm.ProviderType]llm.Provider),
		log:       logger.New("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the history store.
func (c *Client) Close() error {
	return c.history.Close()
}

// History returns the store successful calls are recorded in.
func (c *Client) History() history.Store {
	return c.history
}

// Provider returns the adapter for name, or an error wrapping
// llm.ErrProviderUnavailable.
func (c *Client) Provider(name string) (llm.Provider, error) {
	pt, err := llm.ParseProviderType(name)
	if err != nil {
		return nil, llm.UnavailableError(name)
	}
	p, ok := c.providers[pt]
	if !ok {
		return nil, llm.UnavailableError(name)
	}
	return p, nil
}

// Generate produces a completion for req.Prompt.
func (c *Client) Generate(ctx context.Context, req llm.GenerationRequest) (*llm.GenerationResponse, error) {
	if _, err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := c.Provider(req.Provider)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, p, history.OpGenerate, req.Prompt, func(ctx context.Context) (*llm.GenerationResponse, error) {
		return p.Generate(ctx, req.Prompt, req.Sampling.Options(req.SystemPrompt))
	})
}

// Chat produces the next assistant turn for req.Messages.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.GenerationResponse, error) {
	if _, err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := c.Provider(req.Provider)
	if err != nil {
		return nil, err
	}
	last := req.Messages[len(req.Messages)-1].Content
	return c.call(ctx, p, history.OpChat, last, func(ctx context.Context) (*llm.GenerationResponse, error) {
		return p.Chat(ctx, req.Messages, req.Sampling.Options(""))
	})
}

func (c *Client) call(ctx context.Context, p llm.Provider, op, prompt string, fn func(context.Context) (*llm.GenerationResponse, error)) (*llm.GenerationResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := fn(ctx)
	provider := string(p.Type())
	recordLLMCall(provider, op, err)
	if err != nil {
		c.log.Error("", "Provider call failed", map[string]interface{}{
			"provider":  provider,
			"operation": op,
			"error":     err.Error(),
		})
		return nil, err
	}
	c.record(ctx, op, prompt, resp, time.Since(start))
	return resp, nil
}

func (c *Client) record(ctx context.Context, op, prompt string, resp *llm.GenerationResponse, elapsed time.Duration) {
	rec := &history.Record{
		Operation:  op,
		Provider:   resp.Provider,
		Model:      resp.Model,
		Prompt:     prompt,
		Response:   resp.Text,
		DurationMS: elapsed.Milliseconds(),
	}
	if resp.Usage != nil {
		rec.PromptTokens = resp.Usage.PromptTokens
		rec.CompletionTokens = resp.Usage.CompletionTokens
		rec.TotalTokens = resp.Usage.TotalTokens
		recordTokens(resp.Provider, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	// History must not turn a successful generation into a failure.
	if err := c.history.Add(context.WithoutCancel(ctx), rec); err != nil {
		c.log.Warn("", "Failed to record history", map[string]interface{}{
			"provider": resp.Provider,
			"error":    err.Error(),
		})
	}
}

// HealthCheck reports every configured provider's health. A provider that
// errors is reported as false.
func (c *Client) HealthCheck(ctx context.Context) map[string]bool {
	status := make(map[string]bool, len(c.providers))
	for pt, p := range c.providers {
		result, err := p.HealthCheck(ctx)
		status[string(pt)] = err == nil && result.Healthy()
	}
	return status
}

// AvailableProviders lists configured provider names, sorted.
func (c *Client) AvailableProviders() []string {
	names := make([]string, 0, len(c.providers))
	for pt := range c.providers {
		names = append(names, string(pt))
	}
	sort.Strings(names)
	return names
}

// AvailableModels lists the models of a configured provider.
func (c *Client) AvailableModels(name string) ([]string, error) {
	p, err := c.Provider(name)
	if err != nil {
		return nil, err
	}
	return p.Models(), nil
}

// ProviderInfo describes every configured provider.
func (c *Client) ProviderInfo() map[string]ProviderDetails {
	info := make(map[string]ProviderDetails, len(c.providers))
	for pt, p := range c.providers {
		info[string(pt)] = ProviderDetails{
			Available:    true,
			Models:       p.Models(),
			ProviderName: p.Name(),
		}
	}
	return info
}

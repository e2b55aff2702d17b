// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
	"genaikit/shared/config"
	"genaikit/shared/logger"
)

func newTestClient(t *testing.T, providers ...llm.Provider) (*Client, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore(100)
	c := NewClientWithProviders(providers, WithHistory(store), WithLogger(logger.Nop()))
	return c, store
}

func TestClientGenerate(t *testing.T) {
	openai := newFakeProvider(llm.ProviderOpenAI)
	c, store := newTestClient(t, openai)

	resp, err := c.Generate(context.Background(), llm.GenerationRequest{
		Prompt:       "hello",
		Provider:     "openai",
		SystemPrompt: "be brief",
		Sampling:     llm.Sampling{Model: "model-b", Temperature: llm.Float(0)},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", resp.Text)
	assert.Equal(t, "model-b", resp.Model)

	opts := openai.options()
	assert.Equal(t, "be brief", opts.SystemPrompt)
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.0, *opts.Temperature)

	recent, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, history.OpGenerate, recent[0].Operation)
	assert.Equal(t, "hello", recent[0].Prompt)
	assert.Equal(t, 8, recent[0].TotalTokens)
}

func TestClientGenerateUnavailableProvider(t *testing.T) {
	c, _ := newTestClient(t, newFakeProvider(llm.ProviderOpenAI))

	_, err := c.Generate(context.Background(), llm.GenerationRequest{Prompt: "hi", Provider: "gemini"})
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "provider gemini is not available")
}

func TestClientGenerateValidation(t *testing.T) {
	c, _ := newTestClient(t, newFakeProvider(llm.ProviderOpenAI))

	_, err := c.Generate(context.Background(), llm.GenerationRequest{Provider: "openai"})
	var verr *llm.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "prompt", verr.Field)

	_, err = c.Generate(context.Background(), llm.GenerationRequest{Prompt: "x", Provider: "anthropic"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "provider", verr.Field)
}

func TestClientGenerateProviderFailureNotRecorded(t *testing.T) {
	p := newFakeProvider(llm.ProviderBedrock)
	p.failOn = "bad"
	c, store := newTestClient(t, p)

	_, err := c.Generate(context.Background(), llm.GenerationRequest{Prompt: "bad prompt", Provider: "bedrock"})
	var perr *llm.ProviderError
	require.ErrorAs(t, err, &perr)

	recent, _ := store.Recent(context.Background(), 0)
	assert.Empty(t, recent)
}

func TestClientChat(t *testing.T) {
	gem := newFakeProvider(llm.ProviderGemini)
	c, store := newTestClient(t, gem)

	msgs := []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "question"},
	}
	resp, err := c.Chat(context.Background(), llm.ChatRequest{Messages: msgs, Provider: "gemini"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, msgs, gem.messages())

	recent, _ := store.Recent(context.Background(), 0)
	require.Len(t, recent, 1)
	assert.Equal(t, history.OpChat, recent[0].Operation)
	assert.Equal(t, "question", recent[0].Prompt)
}

func TestClientTimeout(t *testing.T) {
	p := newFakeProvider(llm.ProviderOpenAI)
	p.delay = time.Second
	c := NewClientWithProviders([]llm.Provider{p}, WithLogger(logger.Nop()), WithTimeout(10*time.Millisecond))

	_, err := c.Generate(context.Background(), llm.GenerationRequest{Prompt: "slow", Provider: "openai"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientProviderQueries(t *testing.T) {
	sick := newFakeProvider(llm.ProviderBedrock)
	sick.healthy = false
	c, _ := newTestClient(t, newFakeProvider(llm.ProviderOpenAI), sick)

	assert.Equal(t, []string{"bedrock", "openai"}, c.AvailableProviders())
	assert.Equal(t, map[string]bool{"openai": true, "bedrock": false}, c.HealthCheck(context.Background()))

	models, err := c.AvailableModels("openai")
	require.NoError(t, err)
	assert.Len(t, models, 4)

	_, err = c.AvailableModels("gemini")
	assert.ErrorIs(t, err, llm.ErrProviderUnavailable)

	info := c.ProviderInfo()
	require.Contains(t, info, "openai")
	assert.True(t, info["openai"].Available)
	assert.Equal(t, "Fake openai", info["openai"].ProviderName)
	assert.NotContains(t, info, "gemini")
}

func TestNewClientFromSettings(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.GeminiAPIKey = ""
	cfg.AWSAccessKeyID = "AKIDEXAMPLE"
	cfg.AWSSecretAccessKey = "secret"
	cfg.HistoryBackend = config.HistoryMemory

	c, err := NewClient(context.Background(), cfg, WithLogger(logger.New("client").WithOutput(&buf).WithLevel(logger.DEBUG)))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, []string{"bedrock", "openai"}, c.AvailableProviders())
	assert.IsType(t, &history.MemoryStore{}, c.History())
	assert.Contains(t, buf.String(), "Provider initialized")
	assert.Contains(t, buf.String(), "Provider not configured")
}

func TestNewClientBadHistoryFallsBack(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.AWSAccessKeyID = "AKIDEXAMPLE"
	cfg.AWSSecretAccessKey = "secret"
	cfg.HistoryBackend = config.HistoryRedis
	cfg.RedisURL = "::bad"

	c, err := NewClient(context.Background(), cfg, WithLogger(logger.New("client").WithOutput(&buf)))
	require.NoError(t, err)
	assert.IsType(t, history.NopStore{}, c.History())
	assert.Contains(t, buf.String(), "History store unavailable")
}

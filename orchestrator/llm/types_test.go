// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderType
		wantErr bool
	}{
		{"openai", ProviderOpenAI, false},
		{" Bedrock ", ProviderBedrock, false},
		{"GEMINI", ProviderGemini, false},
		{"anthropic", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProviderType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown provider")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatMessageValidate(t *testing.T) {
	assert.NoError(t, ChatMessage{Role: RoleUser, Content: "hi"}.Validate())
	assert.NoError(t, ChatMessage{Role: RoleSystem}.Validate())
	assert.Error(t, ChatMessage{Role: "tool", Content: "x"}.Validate())
}

func TestDefaultsResolve(t *testing.T) {
	d := StandardDefaults()

	p := d.Resolve(Options{}, "gpt-3.5-turbo")
	assert.Equal(t, Params{Model: "gpt-3.5-turbo", MaxTokens: 1000, Temperature: 0.7, TopP: 0.9}, p)

	p = d.Resolve(Options{
		Model:        "gpt-4",
		MaxTokens:    50,
		Temperature:  Float(0),
		TopP:         Float(0),
		SystemPrompt: "be brief",
	}, "gpt-3.5-turbo")
	assert.Equal(t, "gpt-4", p.Model)
	assert.Equal(t, 50, p.MaxTokens)
	assert.Equal(t, 0.0, p.Temperature, "explicit zero temperature must be honored")
	assert.Equal(t, 0.0, p.TopP)
	assert.Equal(t, "be brief", p.SystemPrompt)
}

func TestNewUsage(t *testing.T) {
	assert.Equal(t, &Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, NewUsage(3, 4, 0))
	assert.Equal(t, 10, NewUsage(3, 4, 10).TotalTokens)
}

func TestNewHealthResult(t *testing.T) {
	ok := NewHealthResult(time.Now(), nil)
	assert.True(t, ok.Healthy())
	assert.Empty(t, ok.Message)

	bad := NewHealthResult(time.Now(), errors.New("boom"))
	assert.False(t, bad.Healthy())
	assert.Equal(t, "boom", bad.Message)

	var nilResult *HealthCheckResult
	assert.False(t, nilResult.Healthy())
}

func TestPromptMessages(t *testing.T) {
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Content: "q"}}, PromptMessages("q", ""))
	assert.Equal(t, []ChatMessage{
		{Role: RoleSystem, Content: "s"},
		{Role: RoleUser, Content: "q"},
	}, PromptMessages("q", "s"))
}

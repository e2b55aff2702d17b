// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType identifies a supported vendor.
type ProviderType string

const (
	// ProviderOpenAI is the OpenAI chat completions API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderBedrock is AWS Bedrock runtime.
	ProviderBedrock ProviderType = "bedrock"

	// ProviderGemini is the Google Generative Language API.
	ProviderGemini ProviderType = "gemini"
)

// ProviderTypes lists every supported provider in display order.
func ProviderTypes() []ProviderType {
	return []ProviderType{ProviderOpenAI, ProviderBedrock, ProviderGemini}
}

// ParseProviderType accepts a provider name case-insensitively.
func ParseProviderType(s string) (ProviderType, error) {
	p := ProviderType(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderOpenAI, ProviderBedrock, ProviderGemini:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q (expected one of openai, bedrock, gemini)", s)
}

func (p ProviderType) String() string { return string(p) }

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate rejects unknown roles.
func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	}
	return fmt.Errorf("invalid message role %q", m.Role)
}

// Options are per-call generation parameters. Zero values mean "use the
// configured default".
type Options struct {
	Model        string
	MaxTokens    int
	Temperature  *float64
	TopP         *float64
	SystemPrompt string
}

// Float returns a pointer to v, for Options.Temperature and Options.TopP.
func Float(v float64) *float64 { return &v }

// Defaults are the configured sampling parameters.
type Defaults struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// StandardDefaults returns max_tokens=1000, temperature=0.7, top_p=0.9.
func StandardDefaults() Defaults {
	return Defaults{MaxTokens: 1000, Temperature: 0.7, TopP: 0.9}
}

// Params are fully resolved generation parameters.
type Params struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	SystemPrompt string
}

// Resolve merges opts over d. defaultModel is used when opts.Model is empty.
func (d Defaults) Resolve(opts Options, defaultModel string) Params {
	p := Params{
		Model:        opts.Model,
		MaxTokens:    opts.MaxTokens,
		Temperature:  d.Temperature,
		TopP:         d.TopP,
		SystemPrompt: opts.SystemPrompt,
	}
	if p.Model == "" {
		p.Model = defaultModel
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = d.MaxTokens
	}
	if opts.Temperature != nil {
		p.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		p.TopP = *opts.TopP
	}
	return p
}

// Usage is token accounting normalized across vendors.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage, computing the total when the vendor omits it.
func NewUsage(prompt, completion, total int) *Usage {
	if total == 0 {
		total = prompt + completion
	}
	return &Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

// GenerationResponse is the uniform result of Generate and Chat.
type GenerationResponse struct {
	Text     string         `json:"text"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Usage    *Usage         `json:"usage,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// HealthStatus represents the health state of a provider.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResult contains detailed health check information.
type HealthCheckResult struct {
	Status      HealthStatus  `json:"status"`
	Latency     time.Duration `json:"latency"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
}

// Healthy reports whether Status is HealthStatusHealthy.
func (r *HealthCheckResult) Healthy() bool {
	return r != nil && r.Status == HealthStatusHealthy
}

// NewHealthResult builds a result timed from start. A nil err means healthy.
func NewHealthResult(start time.Time, err error) *HealthCheckResult {
	r := &HealthCheckResult{
		Status:      HealthStatusHealthy,
		Latency:     time.Since(start),
		LastChecked: time.Now(),
	}
	if err != nil {
		r.Status = HealthStatusUnhealthy
		r.Message = err.Error()
	}
	return r
}

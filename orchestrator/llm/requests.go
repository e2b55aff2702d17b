// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import (
	"fmt"
	"strings"
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Sampling holds the optional generation parameters shared by every request.
type Sampling struct {
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

func (s Sampling) validate() error {
	if s.MaxTokens < 0 {
		return invalid("max_tokens", "must not be negative, got %d", s.MaxTokens)
	}
	if s.Temperature != nil && (*s.Temperature < 0 || *s.Temperature > 2) {
		return invalid("temperature", "must be between 0 and 2, got %v", *s.Temperature)
	}
	if s.TopP != nil && (*s.TopP < 0 || *s.TopP > 1) {
		return invalid("top_p", "must be between 0 and 1, got %v", *s.TopP)
	}
	return nil
}

// Options converts the sampling fields to adapter options.
func (s Sampling) Options(systemPrompt string) Options {
	return Options{
		Model:        s.Model,
		MaxTokens:    s.MaxTokens,
		Temperature:  s.Temperature,
		TopP:         s.TopP,
		SystemPrompt: systemPrompt,
	}
}

func parseProvider(name string) (ProviderType, error) {
	if name == "" {
		return "", invalid("provider", "is required")
	}
	p, err := ParseProviderType(name)
	if err != nil {
		return "", invalid("provider", "%v", err)
	}
	return p, nil
}

// GenerationRequest asks for a single completion.
type GenerationRequest struct {
	Prompt       string `json:"prompt"`
	Provider     string `json:"provider"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Sampling
}

// Validate checks the request and returns the parsed provider.
func (r GenerationRequest) Validate() (ProviderType, error) {
	if strings.TrimSpace(r.Prompt) == "" {
		return "", invalid("prompt", "is required")
	}
	if err := r.Sampling.validate(); err != nil {
		return "", err
	}
	return parseProvider(r.Provider)
}

// ChatRequest asks for the next assistant turn.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	Provider string        `json:"provider"`
	Sampling
}

// Validate checks the request and returns the parsed provider.
func (r ChatRequest) Validate() (ProviderType, error) {
	if len(r.Messages) == 0 {
		return "", invalid("messages", "at least one message is required")
	}
	for i, m := range r.Messages {
		if err := m.Validate(); err != nil {
			return "", invalid("messages", "message %d: %v", i, err)
		}
	}
	if err := r.Sampling.validate(); err != nil {
		return "", err
	}
	return parseProvider(r.Provider)
}

// DefaultConcurrency is the batch fan-out used when none is given.
const DefaultConcurrency = 5

// BatchRequest runs the same parameters over many prompts.
type BatchRequest struct {
	Prompts            []string `json:"prompts"`
	Provider           string   `json:"provider"`
	ConcurrentRequests int      `json:"concurrent_requests,omitempty"`
	Sampling
}

// Validate checks the request and returns the parsed provider.
func (r BatchRequest) Validate() (ProviderType, error) {
	if r.Prompts == nil {
		return "", invalid("prompts", "is required")
	}
	if err := r.Sampling.validate(); err != nil {
		return "", err
	}
	return parseProvider(r.Provider)
}

// Concurrency returns the effective fan-out; values <= 0 mean DefaultConcurrency.
func (r BatchRequest) Concurrency() int {
	if r.ConcurrentRequests <= 0 {
		return DefaultConcurrency
	}
	return r.ConcurrentRequests
}

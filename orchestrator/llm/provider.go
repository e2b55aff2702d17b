// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package llm

import "context"

// Provider is implemented by every vendor adapter.
//
// Implementations must be safe for concurrent use; BatchGenerate calls
// Generate from several goroutines at once.
type Provider interface {
	// Name returns the display name of this adapter.
	Name() string

	// Type returns the provider identifier used for routing.
	Type() ProviderType

	// Generate produces a completion for a single prompt. When
	// opts.SystemPrompt is set it behaves like Chat with a system and a
	// user message.
	Generate(ctx context.Context, prompt string, opts Options) (*GenerationResponse, error)

	// Chat produces the next assistant turn for a conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts Options) (*GenerationResponse, error)

	// HealthCheck verifies credentials and reachability.
	HealthCheck(ctx context.Context) (*HealthCheckResult, error)

	// Models lists the model identifiers this adapter advertises.
	Models() []string

	// DefaultModel is used when Options.Model is empty.
	DefaultModel() string
}

// PromptMessages turns a prompt and optional system prompt into chat messages.
func PromptMessages(prompt, systemPrompt string) []ChatMessage {
	msgs := make([]ChatMessage, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: systemPrompt})
	}
	return append(msgs, ChatMessage{Role: RoleUser, Content: prompt})
}

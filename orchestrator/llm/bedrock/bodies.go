// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package bedrock

import (
	"encoding/json"
	"fmt"
	"strings"

	"genaikit/orchestrator/llm"
)

// Model families hosted on Bedrock, identified by the model id prefix.
const (
	FamilyAnthropic = "anthropic"
	FamilyAmazon    = "amazon"
	FamilyAI21      = "ai21"
	FamilyMeta      = "meta"
	FamilyMistral   = "mistral"
)

const anthropicVersion = "bedrock-2023-05-31"

// inferenceProfilePrefixes are the known AWS Bedrock inference profile prefixes.
var inferenceProfilePrefixes = []string{"eu", "us", "apac", "global"}

var supportedFamilies = []string{FamilyAnthropic, FamilyAmazon, FamilyAI21, FamilyMeta, FamilyMistral}

// DetectFamily returns the model family of a Bedrock model id, or "" when
// the family is not supported.
//
//	anthropic.claude-3-sonnet-20240229-v1:0    -> anthropic
//	us.anthropic.claude-3-haiku-20240307-v1:0  -> anthropic
//	amazon.titan-text-express-v1               -> amazon
func DetectFamily(modelID string) string {
	segments := strings.Split(modelID, ".")
	if len(segments) < 2 {
		return ""
	}
	first := segments[0]
	for _, prefix := range inferenceProfilePrefixes {
		if first == prefix {
			if len(segments) < 3 {
				return ""
			}
			return validFamily(segments[1])
		}
	}
	return validFamily(first)
}

func validFamily(family string) string {
	for _, f := range supportedFamilies {
		if family == f {
			return family
		}
	}
	return ""
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	TopP             float64            `json:"top_p"`
	System           string             `json:"system,omitempty"`
	Messages         []anthropicMessage `json:"messages"`
}

// anthropicBody hoists system messages into the top-level system field.
func anthropicBody(messages []llm.ChatMessage, p llm.Params) anthropicRequest {
	req := anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		Messages:         make([]anthropicMessage, 0, len(messages)),
	}
	var system []string
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}
	req.System = strings.Join(system, "\n")
	return req
}

// promptBody builds the single-prompt request body for family.
func promptBody(family, prompt string, p llm.Params) (any, error) {
	switch family {
	case FamilyAnthropic:
		return anthropicBody(llm.PromptMessages(prompt, p.SystemPrompt), p), nil
	case FamilyAmazon:
		return map[string]any{
			"inputText": prompt,
			"textGenerationConfig": map[string]any{
				"maxTokenCount": p.MaxTokens,
				"temperature":   p.Temperature,
				"topP":          p.TopP,
			},
		}, nil
	case FamilyAI21:
		return map[string]any{
			"prompt":      prompt,
			"maxTokens":   p.MaxTokens,
			"temperature": p.Temperature,
			"topP":        p.TopP,
		}, nil
	case FamilyMeta:
		return map[string]any{
			"prompt":      prompt,
			"max_gen_len": p.MaxTokens,
			"temperature": p.Temperature,
			"top_p":       p.TopP,
		}, nil
	case FamilyMistral:
		return map[string]any{
			"prompt":      prompt,
			"max_tokens":  p.MaxTokens,
			"temperature": p.Temperature,
			"top_p":       p.TopP,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model family: %q", family)
	}
}

// parsed is the family-independent view of a response body.
type parsed struct {
	text     string
	usage    *llm.Usage
	metadata map[string]any
}

func parseBody(family string, body []byte) (*parsed, error) {
	switch family {
	case FamilyAnthropic:
		return parseAnthropic(body)
	case FamilyAmazon:
		return parseTitan(body)
	case FamilyAI21:
		return parseJurassic(body)
	case FamilyMeta:
		return parseLlama(body)
	case FamilyMistral:
		return parseMistral(body)
	default:
		return nil, fmt.Errorf("unsupported model family: %q", family)
	}
}

func parseAnthropic(body []byte) (*parsed, error) {
	var resp struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("response contained no content")
	}
	return &parsed{
		text:  resp.Content[0].Text,
		usage: llm.NewUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens, 0),
		metadata: map[string]any{
			"stop_reason": resp.StopReason,
			"model_id":    resp.Model,
		},
	}, nil
}

func parseTitan(body []byte) (*parsed, error) {
	var resp struct {
		InputTextTokenCount int `json:"inputTextTokenCount"`
		Results             []struct {
			OutputText       string `json:"outputText"`
			TokenCount       int    `json:"tokenCount"`
			CompletionReason string `json:"completionReason"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("response contained no results")
	}
	r := resp.Results[0]
	return &parsed{
		text:     r.OutputText,
		usage:    llm.NewUsage(resp.InputTextTokenCount, r.TokenCount, 0),
		metadata: map[string]any{"completion_reason": r.CompletionReason},
	}, nil
}

func parseJurassic(body []byte) (*parsed, error) {
	var resp struct {
		Prompt struct {
			Tokens []json.RawMessage `json:"tokens"`
		} `json:"prompt"`
		Completions []struct {
			Data struct {
				Text   string            `json:"text"`
				Tokens []json.RawMessage `json:"tokens"`
			} `json:"data"`
			FinishReason struct {
				Reason string `json:"reason"`
			} `json:"finishReason"`
		} `json:"completions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Completions) == 0 {
		return nil, fmt.Errorf("response contained no completions")
	}
	c := resp.Completions[0]
	return &parsed{
		text:     c.Data.Text,
		usage:    llm.NewUsage(len(resp.Prompt.Tokens), len(c.Data.Tokens), 0),
		metadata: map[string]any{"finish_reason": c.FinishReason.Reason},
	}, nil
}

func parseLlama(body []byte) (*parsed, error) {
	var resp struct {
		Generation       string `json:"generation"`
		PromptTokenCount int    `json:"prompt_token_count"`
		GenTokenCount    int    `json:"generation_token_count"`
		StopReason       string `json:"stop_reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &parsed{
		text:     resp.Generation,
		usage:    llm.NewUsage(resp.PromptTokenCount, resp.GenTokenCount, 0),
		metadata: map[string]any{"stop_reason": resp.StopReason},
	}, nil
}

// Mistral does not report token counts.
func parseMistral(body []byte) (*parsed, error) {
	var resp struct {
		Outputs []struct {
			Text       string `json:"text"`
			StopReason string `json:"stop_reason"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(resp.Outputs) == 0 {
		return nil, fmt.Errorf("response contained no outputs")
	}
	return &parsed{
		text:     resp.Outputs[0].Text,
		metadata: map[string]any{"stop_reason": resp.Outputs[0].StopReason},
	}, nil
}

// flatten renders a conversation as "role: content" lines for families
// without a native chat format.
func flatten(messages []llm.ChatMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

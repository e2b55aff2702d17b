// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package orchestrator

import (
	"context"

	"genaikit/orchestrator/llm"
	"genaikit/orchestrator/llm/bedrock"
	"genaikit/orchestrator/llm/gemini"
	"genaikit/orchestrator/llm/openai"
	"genaikit/shared/config"
	"genaikit/shared/logger"
)

// initProviders creates the adapters cfg allows. Failures are logged and the
// adapter is skipped.
func initProviders(ctx context.Context, cfg *config.Settings, log *logger.Logger) []llm.Provider {
	defaults := llm.Defaults{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
	var providers []llm.Provider

	if cfg.OpenAIAPIKey != "" {
		p, err := openai.NewProvider(openai.Config{
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Timeout:  cfg.RequestTimeout,
			Defaults: defaults,
		})
		if err != nil {
			logInitFailure(log, llm.ProviderOpenAI, err)
		} else {
			providers = append(providers, p)
		}
	}

	bp, err := bedrock.NewProvider(ctx, bedrock.Config{
		Region:          cfg.AWSRegion,
		Profile:         cfg.AWSProfile,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		SessionToken:    cfg.AWSSessionToken,
		Model:           cfg.BedrockModel,
		Defaults:        defaults,
	})
	if err != nil {
		logInitFailure(log, llm.ProviderBedrock, err)
	} else {
		providers = append(providers, bp)
	}

	if cfg.GeminiAPIKey != "" {
		p, err := gemini.NewProvider(gemini.Config{
			APIKey:   cfg.GeminiAPIKey,
			BaseURL:  cfg.GeminiBaseURL,
			Timeout:  cfg.RequestTimeout,
			Defaults: defaults,
		})
		if err != nil {
			logInitFailure(log, llm.ProviderGemini, err)
		} else {
			providers = append(providers, p)
		}
	}

	return providers
}

func logInitFailure(log *logger.Logger, pt llm.ProviderType, err error) {
	log.Warn("", "Failed to initialize provider", map[string]interface{}{
		"provider": string(pt),
		"error":    err.Error(),
	})
}

func (c *Client) logProviderStatus() {
	for _, pt := range llm.ProviderTypes() {
		p, ok := c.providers[pt]
		if !ok {
			c.log.Debug("", "Provider not configured", map[string]interface{}{"provider": string(pt)})
			continue
		}
		c.log.Info("", "Provider initialized", map[string]interface{}{
			"provider":      string(pt),
			"name":          p.Name(),
			"default_model": p.DefaultModel(),
		})
	}
}

// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

/*
Package llm defines the contract shared by every generative-AI provider
adapter and the request/response types that travel through the client
facade, the REST API, the dashboard and the CLI.

# Provider Interface

Adapters live in subpackages (openai, bedrock, gemini) and implement:

	type Provider interface {
	    Name() string
	    Type() ProviderType
	    Generate(ctx context.Context, prompt string, opts Options) (*GenerationResponse, error)
	    Chat(ctx context.Context, messages []ChatMessage, opts Options) (*GenerationResponse, error)
	    HealthCheck(ctx context.Context) (*HealthCheckResult, error)
	    Models() []string
	    DefaultModel() string
	}

Adapters only map request and response shapes. They do not retry, cache or
rate limit.

# Sampling Defaults

Options leaves every field optional. Defaults.Resolve fills the gaps with the
configured max tokens, temperature and top_p. Temperature and TopP are
pointers so an explicit zero is passed through to the vendor.

# Errors

Vendor failures are reported as *ProviderError with a machine-readable Code.
Use errors.As to inspect them:

	var pe *llm.ProviderError
	if errors.As(err, &pe) && pe.Code == llm.ErrCodeRateLimit {
	    // back off
	}

A provider that is not configured is reported by the facade as
ErrProviderUnavailable.
*/
package llm

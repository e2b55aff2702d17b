// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package bedrock adapts AWS Bedrock InvokeModel to llm.Provider.
//
// Each hosted model family has its own request and response schema; the
// family is taken from the model id (see DetectFamily).
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"genaikit/orchestrator/llm"
)

const (
	DefaultRegion = "us-east-1"
	DefaultModel  = "anthropic.claude-3-sonnet-20240229-v1:0"
)

// RuntimeAPI is the subset of bedrockruntime.Client used here.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// IdentityAPI is the subset of sts.Client used for health checks.
type IdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Config contains configuration for the Bedrock provider. Credentials fall
// back to the default AWS chain when AccessKeyID is empty.
type Config struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Model           string
	Defaults        llm.Defaults
}

// Provider implements llm.Provider for AWS Bedrock.
type Provider struct {
	runtime  RuntimeAPI
	identity IdentityAPI
	region   string
	model    string
	defaults llm.Defaults
}

// NewProvider loads AWS configuration and creates the runtime and STS clients.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	cfg = withDefaults(cfg)

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", cfg.Region, err)
	}

	return NewProviderWithClients(cfg, bedrockruntime.NewFromConfig(awsCfg), sts.NewFromConfig(awsCfg)), nil
}

// NewProviderWithClients builds a provider around existing clients.
func NewProviderWithClients(cfg Config, runtime RuntimeAPI, identity IdentityAPI) *Provider {
	cfg = withDefaults(cfg)
	return &Provider{
		runtime:  runtime,
		identity: identity,
		region:   cfg.Region,
		model:    cfg.Model,
		defaults: cfg.Defaults,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Defaults.MaxTokens == 0 {
		cfg.Defaults = llm.StandardDefaults()
	}
	return cfg
}

// Name returns the registry key, which is also the provider_name reported
// by GET /providers.
func (p *Provider) Name() string { return string(llm.ProviderBedrock) }

// Type returns llm.ProviderBedrock.
func (p *Provider) Type() llm.ProviderType { return llm.ProviderBedrock }

// DefaultModel returns the model used when none is requested.
func (p *Provider) DefaultModel() string { return p.model }

// Region returns the configured AWS region.
func (p *Provider) Region() string { return p.region }

// Models returns the advertised Bedrock models.
func (p *Provider) Models() []string {
	return []string{
		"anthropic.claude-3-sonnet-20240229-v1:0",
		"anthropic.claude-3-haiku-20240307-v1:0",
		"anthropic.claude-v2:1",
		"amazon.titan-text-express-v1",
		"amazon.titan-text-lite-v1",
		"ai21.j2-ultra-v1",
		"ai21.j2-mid-v1",
		"meta.llama3-70b-instruct-v1:0",
		"mistral.mistral-large-2402-v1:0",
	}
}

// Generate invokes the model with a single prompt. For families without a
// native system field the system prompt is folded into the prompt text.
func (p *Provider) Generate(ctx context.Context, prompt string, opts llm.Options) (*llm.GenerationResponse, error) {
	params := p.defaults.Resolve(opts, p.model)
	family := DetectFamily(params.Model)
	if family == "" {
		return nil, unsupported(params.Model)
	}

	if family != FamilyAnthropic && params.SystemPrompt != "" {
		prompt = flatten(llm.PromptMessages(prompt, params.SystemPrompt))
	}
	body, err := promptBody(family, prompt, params)
	if err != nil {
		return nil, llm.WrapError(string(llm.ProviderBedrock), "generation failed", 0, err)
	}
	resp, err := p.invoke(ctx, family, params.Model, body)
	if err != nil {
		return nil, wrapError("generation failed", err)
	}
	return resp, nil
}

// Chat sends Anthropic conversations natively and flattens the rest into
// a single prompt.
func (p *Provider) Chat(ctx context.Context, messages []llm.ChatMessage, opts llm.Options) (*llm.GenerationResponse, error) {
	params := p.defaults.Resolve(opts, p.model)
	family := DetectFamily(params.Model)
	if family == "" {
		return nil, unsupported(params.Model)
	}
	if family != FamilyAnthropic {
		opts.SystemPrompt = ""
		return p.Generate(ctx, flatten(messages), opts)
	}

	resp, err := p.invoke(ctx, family, params.Model, anthropicBody(messages, params))
	if err != nil {
		return nil, wrapError("chat completion failed", err)
	}
	return resp, nil
}

func (p *Provider) invoke(ctx context.Context, family, model string, body any) (*llm.GenerationResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := p.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        payload,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, err
	}

	res, err := parseBody(family, out.Body)
	if err != nil {
		return nil, err
	}
	return &llm.GenerationResponse{
		Text:     res.text,
		Provider: string(llm.ProviderBedrock),
		Model:    model,
		Usage:    res.usage,
		Metadata: res.metadata,
	}, nil
}

// HealthCheck calls sts:GetCallerIdentity with the same AWS config, which
// proves the credentials are valid and the region endpoint is reachable.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthCheckResult, error) {
	start := time.Now()
	if p.identity == nil {
		err := llm.NewProviderError(string(llm.ProviderBedrock), llm.ErrCodeUnavailable, "no identity client configured")
		return llm.NewHealthResult(start, err), err
	}
	_, err := p.identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		err = wrapError("health check failed", err)
	}
	return llm.NewHealthResult(start, err), err
}

func unsupported(model string) error {
	return llm.NewProviderError(string(llm.ProviderBedrock), llm.ErrCodeUnsupportedModel,
		fmt.Sprintf("unsupported Bedrock model: %s", model))
}

func wrapError(op string, err error) error {
	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}
	return llm.WrapError(string(llm.ProviderBedrock), op, status, err)
}

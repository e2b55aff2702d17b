// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"genaikit/shared/logger"
)

// SecretFetcher resolves a secret ARN into key/value pairs.
type SecretFetcher interface {
	GetSecret(ctx context.Context, secretARN string) (map[string]string, error)
}

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager implements SecretFetcher using AWS Secrets Manager
type AWSSecretsManager struct {
	client secretsAPI
	cache  map[string]*secretCacheEntry
	mu     sync.RWMutex
	ttl    time.Duration
	log    *logger.Logger
}

type secretCacheEntry struct {
	value     map[string]string
	expiresAt time.Time
}

// NewAWSSecretsManager creates a Secrets Manager client in region.
func NewAWSSecretsManager(ctx context.Context, region string, ttl time.Duration, log *logger.Logger) (*AWSSecretsManager, error) {
	var cfgOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newAWSSecretsManager(secretsmanager.NewFromConfig(cfg), ttl, log), nil
}

func newAWSSecretsManager(client secretsAPI, ttl time.Duration, log *logger.Logger) *AWSSecretsManager {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AWSSecretsManager{
		client: client,
		cache:  make(map[string]*secretCacheEntry),
		ttl:    ttl,
		log:    log,
	}
}

// GetSecret returns the secret as a map. Plain-string secrets come back
// under the "value" key.
func (s *AWSSecretsManager) GetSecret(ctx context.Context, secretARN string) (map[string]string, error) {
	s.mu.RLock()
	entry, ok := s.cache[secretARN]
	s.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	s.log.Debug("", "fetching secret", map[string]interface{}{"secret": maskARN(secretARN)})

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretARN),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", maskARN(secretARN), err)
	}
	if result.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", maskARN(secretARN))
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &values); err != nil {
		values = map[string]string{"value": *result.SecretString}
	}

	s.mu.Lock()
	s.cache[secretARN] = &secretCacheEntry{value: values, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return values, nil
}

// ResolveSecrets fills provider API keys from their secret ARNs when the
// key itself is not set.
func (s *Settings) ResolveSecrets(ctx context.Context, fetcher SecretFetcher) error {
	targets := []struct {
		arn string
		dst *string
	}{
		{s.OpenAIAPIKeySecretARN, &s.OpenAIAPIKey},
		{s.GeminiAPIKeySecretARN, &s.GeminiAPIKey},
	}
	for _, t := range targets {
		if t.arn == "" || *t.dst != "" {
			continue
		}
		values, err := fetcher.GetSecret(ctx, t.arn)
		if err != nil {
			return err
		}
		key := pickAPIKey(values)
		if key == "" {
			return fmt.Errorf("secret %s has no api_key field", maskARN(t.arn))
		}
		*t.dst = key
	}
	return nil
}

// NeedsSecrets reports whether any API key must come from Secrets Manager.
func (s *Settings) NeedsSecrets() bool {
	return (s.OpenAIAPIKeySecretARN != "" && s.OpenAIAPIKey == "") ||
		(s.GeminiAPIKeySecretARN != "" && s.GeminiAPIKey == "")
}

func pickAPIKey(values map[string]string) string {
	for _, k := range []string{"api_key", "apiKey", "API_KEY", "value"} {
		if v := values[k]; v != "" {
			return v
		}
	}
	if len(values) == 1 {
		for _, v := range values {
			return v
		}
	}
	return ""
}

// maskARN shows only the last 8 characters of an ARN
func maskARN(arn string) string {
	if len(arn) <= 12 {
		return "***"
	}
	return "..." + arn[len(arn)-8:]
}

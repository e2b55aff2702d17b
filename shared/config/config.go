// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// History backends accepted by HISTORY_BACKEND.
const (
	HistoryNone     = "none"
	HistoryMemory   = "memory"
	HistoryRedis    = "redis"
	HistoryPostgres = "postgres"
)

// Settings holds every tunable of the client, the API server and the CLI.
type Settings struct {
	OpenAIAPIKey          string `yaml:"openai_api_key"`
	OpenAIBaseURL         string `yaml:"openai_base_url"`
	OpenAIAPIKeySecretARN string `yaml:"openai_api_key_secret_arn"`

	GeminiAPIKey          string `yaml:"gemini_api_key"`
	GeminiBaseURL         string `yaml:"gemini_base_url"`
	GeminiAPIKeySecretARN string `yaml:"gemini_api_key_secret_arn"`

	AWSRegion          string `yaml:"aws_region"`
	AWSProfile         string `yaml:"aws_profile"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key"`
	AWSSessionToken    string `yaml:"aws_session_token"`
	BedrockModel       string `yaml:"bedrock_model"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`

	LogLevel string `yaml:"log_level"`

	APIHost        string        `yaml:"api_host"`
	APIPort        int           `yaml:"api_port"`
	APIJWTSecret   string        `yaml:"api_jwt_secret"`
	EnableMetrics  bool          `yaml:"enable_metrics"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	HistoryBackend string `yaml:"history_backend"`
	RedisURL       string `yaml:"redis_url"`
	DatabaseURL    string `yaml:"database_url"`
	HistoryLimit   int    `yaml:"history_limit"`

	// Batch result sinks (s3://, gs://, azblob://).
	S3Endpoint             string `yaml:"s3_endpoint"`
	GCSCredentialsFile     string `yaml:"gcs_credentials_file"`
	AzureStorageAccount    string `yaml:"azure_storage_account"`
	AzureStorageKey        string `yaml:"azure_storage_key"`
	AzureStorageConnString string `yaml:"azure_storage_connection_string"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		AWSRegion:      "us-east-1",
		BedrockModel:   "anthropic.claude-3-sonnet-20240229-v1:0",
		MaxTokens:      1000,
		Temperature:    0.7,
		TopP:           0.9,
		LogLevel:       "INFO",
		APIHost:        "0.0.0.0",
		APIPort:        8000,
		EnableMetrics:  true,
		RequestTimeout: 60 * time.Second,
		HistoryBackend: HistoryMemory,
		HistoryLimit:   500,
	}
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. Falls back to GENAI_CONFIG.
	ConfigFile string
	// EnvFile is a dotenv file. Defaults to ".env"; a missing file is not an error.
	EnvFile string
}

// Load builds Settings from defaults, the YAML file, the dotenv file and the
// environment, in that order of increasing precedence.
func Load(opts LoadOptions) (*Settings, error) {
	s := Default()

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv("GENAI_CONFIG")
	}
	if path != "" {
		if err := s.loadYAML(path); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), s); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	str := map[string]*string{
		"OPENAI_API_KEY":            &s.OpenAIAPIKey,
		"OPENAI_BASE_URL":           &s.OpenAIBaseURL,
		"OPENAI_API_KEY_SECRET_ARN": &s.OpenAIAPIKeySecretARN,
		"GEMINI_API_KEY":            &s.GeminiAPIKey,
		"GEMINI_BASE_URL":           &s.GeminiBaseURL,
		"GEMINI_API_KEY_SECRET_ARN": &s.GeminiAPIKeySecretARN,
		"AWS_REGION":                &s.AWSRegion,
		"AWS_PROFILE":               &s.AWSProfile,
		"AWS_ACCESS_KEY_ID":         &s.AWSAccessKeyID,
		"AWS_SECRET_ACCESS_KEY":     &s.AWSSecretAccessKey,
		"AWS_SESSION_TOKEN":         &s.AWSSessionToken,
		"BEDROCK_MODEL":             &s.BedrockModel,
		"LOG_LEVEL":                 &s.LogLevel,
		"API_HOST":                  &s.APIHost,
		"API_JWT_SECRET":            &s.APIJWTSecret,
		"HISTORY_BACKEND":           &s.HistoryBackend,
		"REDIS_URL":                 &s.RedisURL,
		"DATABASE_URL":              &s.DatabaseURL,

		"S3_ENDPOINT":                     &s.S3Endpoint,
		"GOOGLE_APPLICATION_CREDENTIALS":  &s.GCSCredentialsFile,
		"AZURE_STORAGE_ACCOUNT":           &s.AzureStorageAccount,
		"AZURE_STORAGE_KEY":               &s.AzureStorageKey,
		"AZURE_STORAGE_CONNECTION_STRING": &s.AzureStorageConnString,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_TOKENS":    &s.MaxTokens,
		"API_PORT":      &s.APIPort,
		"HISTORY_LIMIT": &s.HistoryLimit,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"TEMPERATURE": &s.Temperature,
		"TOP_P":       &s.TopP,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = f
		}
	}

	if v := os.Getenv("ENABLE_METRICS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENABLE_METRICS %q: %w", v, err)
		}
		s.EnableMetrics = b
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", v, err)
		}
		s.RequestTimeout = d
	}
	return nil
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks ranges and enums.
func (s *Settings) Validate() error {
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", s.Temperature)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p must be between 0 and 1, got %v", s.TopP)
	}
	if s.APIPort <= 0 || s.APIPort > 65535 {
		return fmt.Errorf("api_port out of range: %d", s.APIPort)
	}
	switch strings.ToLower(s.HistoryBackend) {
	case HistoryNone, HistoryMemory, HistoryRedis, HistoryPostgres:
		s.HistoryBackend = strings.ToLower(s.HistoryBackend)
	case "":
		s.HistoryBackend = HistoryNone
	default:
		return fmt.Errorf("unknown history_backend %q", s.HistoryBackend)
	}
	if s.HistoryBackend == HistoryRedis && s.RedisURL == "" {
		return errors.New("history_backend redis requires redis_url")
	}
	if s.HistoryBackend == HistoryPostgres && s.DatabaseURL == "" {
		return errors.New("history_backend postgres requires database_url")
	}
	return nil
}

// Addr is the listen address of the API server.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.APIHost, s.APIPort)
}

var envVarRegex = regexp.MustCompile(`\$\{[^}]+\}|\$[A-Za-z_][A-Za-z0-9_]*`)

// expandEnvVars replaces ${VAR}, ${VAR:-default} and $VAR references.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		defaultVal := ""
		if idx := strings.Index(varName, ":-"); idx != -1 {
			defaultVal = varName[idx+2:]
			varName = varName[:idx]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultVal
	})
}

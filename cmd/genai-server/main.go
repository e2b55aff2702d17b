// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package main is the entry point for the GenAI API server.
//
// It serves the REST API, the dashboard under /dashboard and, when enabled,
// Prometheus metrics under /metrics.
//
// Usage:
//
//	./genai-server [-config settings.yaml] [-env-file .env]
//
// Environment Variables:
//
//	API_HOST / API_PORT - listen address (default 0.0.0.0:8000)
//	OPENAI_API_KEY - OpenAI API key (optional)
//	GEMINI_API_KEY - Gemini API key (optional)
//	AWS_REGION - Bedrock region (default us-east-1)
//	API_JWT_SECRET - require HS256 bearer tokens when set
//	HISTORY_BACKEND - memory, redis, postgres or none
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"genaikit/orchestrator"
	"genaikit/shared/config"
)

func main() {
	configFile := flag.String("config", "", "YAML settings file (default $GENAI_CONFIG)")
	envFile := flag.String("env-file", "", "dotenv file (default .env)")
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := orchestrator.Run(context.Background(), cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

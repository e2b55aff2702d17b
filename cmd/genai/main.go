// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

// Package main implements the genai CLI.
//
// Usage:
//
//	genai generate -p openai --prompt "Hello"
//	genai chat -p bedrock --system "You are terse."
//	genai batch -p gemini -i prompts.txt -o s3://bucket/results.json
//	genai providers
//	genai models openai
//	genai serve
//	genai new --no-input project_name="Acme Bot"
//
// Configuration comes from the environment, a .env file and an optional YAML
// file (--config or GENAI_CONFIG).
package main

import (
	"fmt"
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"genaikit/orchestrator/llm"
)

func generateCmd(a *app) *cobra.Command {
	var (
		provider, model, prompt, system, output string
		maxTokens                               int
		temperature, topP                       float64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate text using the specified provider",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return validateProvider(provider)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Generating with %s...\n", provider)
			resp, err := client.Generate(ctx, llm.GenerationRequest{
				Prompt:       prompt,
				Provider:     provider,
				SystemPrompt: system,
				Sampling:     sampling(cmd, model, maxTokens, temperature, topP),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nGenerated Text (%s/%s):\n%s\n\n", resp.Provider, resp.Model, resp.Text)
			printUsage(cmd, resp.Usage)

			if output != "" {
				if err := os.WriteFile(output, []byte(resp.Text), 0o644); err != nil {
					return fmt.Errorf("failed to save output: %w", err)
				}
				fmt.Fprintf(out, "Output saved to %s\n", output)
			}
			return nil
		},
	}

	addProviderFlag(cmd, &provider)
	cmd.Flags().StringVarP(&model, "model", "m", "", "specific model to use")
	cmd.Flags().StringVar(&prompt, "prompt", "", "text prompt to generate from")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().Float64Var(&topP, "top-p", 0, "top-p sampling parameter")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the generated text to this file")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

// printUsage prints the non-zero token counts.
func printUsage(cmd *cobra.Command, u *llm.Usage) {
	if u == nil {
		return
	}
	fields := []struct {
		name  string
		value int
	}{
		{"prompt_tokens", u.PromptTokens},
		{"completion_tokens", u.CompletionTokens},
		{"total_tokens", u.TotalTokens},
	}
	printed := false
	for _, f := range fields {
		if f.value == 0 {
			continue
		}
		if !printed {
			fmt.Fprintln(cmd.OutOrStdout(), "Usage Information:")
			printed = true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d\n", f.name, f.value)
	}
}

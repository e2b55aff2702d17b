// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"genaikit/orchestrator/llm"
)

func chatCmd(a *app) *cobra.Command {
	var provider, model, system string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the specified provider",
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

			out := cmd.OutOrStdout()
			var messages []llm.ChatMessage
			if system != "" {
				messages = append(messages, llm.ChatMessage{Role: llm.RoleSystem, Content: system})
			}

			fmt.Fprintf(out, "Starting chat with %s\n", provider)
			fmt.Fprintln(out, "Type 'quit' or 'exit' to end the conversation")
			fmt.Fprintln(out)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			for {
				fmt.Fprint(out, "You: ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if word := strings.ToLower(input); word == "quit" || word == "exit" {
					break
				}

				messages = append(messages, llm.ChatMessage{Role: llm.RoleUser, Content: input})
				resp, err := client.Chat(ctx, llm.ChatRequest{
					Messages: messages,
					Provider: provider,
					Sampling: llm.Sampling{Model: model},
				})
				if err != nil {
					// The unanswered user turn stays in the transcript.
					fmt.Fprintf(out, "Error: %v\n\n", err)
					continue
				}
				fmt.Fprintf(out, "Assistant: %s\n\n", resp.Text)
				messages = append(messages, llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Text})
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			fmt.Fprintln(out, "Chat ended.")
			return nil
		},
	}

	addProviderFlag(cmd, &provider)
	cmd.Flags().StringVarP(&model, "model", "m", "", "specific model to use")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")

	return cmd
}

// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"genaikit/orchestrator/llm"
)

type batchResultEntry struct {
	PromptIndex int        `json:"prompt_index"`
	Prompt      string     `json:"prompt"`
	Response    string     `json:"response"`
	Provider    string     `json:"provider"`
	Model       string     `json:"model"`
	Usage       *llm.Usage `json:"usage"`
}

type batchErrorEntry struct {
	PromptIndex int    `json:"prompt_index"`
	Error       string `json:"error"`
}

type batchSummary struct {
	TotalPrompts int `json:"total_prompts"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
}

// batchOutput is the JSON document written by `genai batch`.
type batchOutput struct {
	Results []batchResultEntry `json:"results"`
	Errors  []batchErrorEntry  `json:"errors"`
	Summary batchSummary       `json:"summary"`
}

func newBatchOutput(prompts []string, result *llm.BatchResult) batchOutput {
	out := batchOutput{
		Results: []batchResultEntry{},
		Errors:  []batchErrorEntry{},
		Summary: batchSummary{TotalPrompts: len(prompts)},
	}
	for _, item := range result.Items {
		if item.Err != nil {
			out.Errors = append(out.Errors, batchErrorEntry{PromptIndex: item.Index, Error: item.Err.Error()})
			continue
		}
		out.Results = append(out.Results, batchResultEntry{
			PromptIndex: item.Index,
			Prompt:      item.Prompt,
			Response:    item.Response.Text,
			Provider:    item.Response.Provider,
			Model:       item.Response.Model,
			Usage:       item.Response.Usage,
		})
	}
	out.Summary.Successful = len(out.Results)
	out.Summary.Failed = len(out.Errors)
	return out
}

// readPrompts returns the non-blank lines of path, or of stdin when path is "-".
func readPrompts(path string, stdin io.Reader) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}

	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			prompts = append(prompts, line)
		}
	}
	return prompts, nil
}

func batchCmd(a *app) *cobra.Command {
	var (
		provider, model, input, output string
		concurrent, maxTokens          int
		temperature                    float64
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process multiple prompts in batch",
		Long: `Reads one prompt per line from --input and writes a JSON report to --output.
The output may be a local path or an s3://, gs:// or azblob:// URI.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateProvider(provider); err != nil {
				return err
			}
			if concurrent < 1 {
				return fmt.Errorf("--concurrent must be at least 1")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prompts, err := readPrompts(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(prompts) == 0 {
				return fmt.Errorf("no prompts found in input file")
			}

			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Processing %d prompts...\n", len(prompts))
			result, err := client.BatchGenerate(ctx, llm.BatchRequest{
				Prompts:            prompts,
				Provider:           provider,
				ConcurrentRequests: concurrent,
				Sampling:           sampling(cmd, model, maxTokens, temperature, 0),
			})
			if err != nil {
				return fmt.Errorf("batch processing failed: %w", err)
			}

			report := newBatchOutput(prompts, result)
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}

			sink := a.newSink(a.settings, a.log)
			defer sink.Close()
			loc, err := sink.Write(ctx, output, data, "application/json")
			if err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Batch processing completed!")
			fmt.Fprintf(out, "  Total prompts: %d\n", report.Summary.TotalPrompts)
			fmt.Fprintf(out, "  Successful: %d\n", report.Summary.Successful)
			fmt.Fprintf(out, "  Failed: %d\n", report.Summary.Failed)
			fmt.Fprintf(out, "  Results saved to: %s\n", loc)
			return nil
		},
	}

	addProviderFlag(cmd, &provider)
	cmd.Flags().StringVarP(&model, "model", "m", "", "specific model to use")
	cmd.Flags().StringVarP(&input, "input", "i", "", "file with one prompt per line (- for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output JSON path or s3://, gs://, azblob:// URI")
	cmd.Flags().IntVarP(&concurrent, "concurrent", "c", llm.DefaultConcurrency, "number of concurrent requests")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum tokens to generate")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

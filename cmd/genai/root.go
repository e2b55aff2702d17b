// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"genaikit/connectors/storage"
	"genaikit/orchestrator"
	"genaikit/orchestrator/history"
	"genaikit/orchestrator/llm"
	"genaikit/shared/config"
	"genaikit/shared/logger"
)

// genaiClient is the part of orchestrator.Client the commands use.
type genaiClient interface {
	Generate(ctx context.Context, req llm.GenerationRequest) (*llm.GenerationResponse, error)
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.GenerationResponse, error)
	BatchGenerate(ctx context.Context, req llm.BatchRequest) (*llm.BatchResult, error)
	HealthCheck(ctx context.Context) map[string]bool
	ProviderInfo() map[string]orchestrator.ProviderDetails
	AvailableModels(name string) ([]string, error)
	Close() error
}

type outputSink interface {
	Write(ctx context.Context, dest string, data []byte, contentType string) (storage.Location, error)
	Close() error
}

// app carries I/O, loaded settings and the factories the commands use.
// Tests swap the factories for fakes.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	envFile    string

	settings *config.Settings
	log      *logger.Logger

	newClient func(ctx context.Context, cfg *config.Settings, log *logger.Logger) (genaiClient, error)
	newSink   func(cfg *config.Settings, log *logger.Logger) outputSink
	serve     func(ctx context.Context, cfg *config.Settings) error
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		newClient: func(ctx context.Context, cfg *config.Settings, log *logger.Logger) (genaiClient, error) {
			// One-shot commands keep no history unless a shared backend is configured.
			opts := []orchestrator.ClientOption{orchestrator.WithLogger(log.Named("client"))}
			if cfg.HistoryBackend == config.HistoryMemory {
				opts = append(opts, orchestrator.WithHistory(history.NopStore{}))
			}
			client, err := orchestrator.NewClient(ctx, cfg, opts...)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
		newSink: func(cfg *config.Settings, log *logger.Logger) outputSink {
			return storage.NewSink(storage.OptionsFromSettings(cfg), log.Named("storage"))
		},
		serve: orchestrator.Run,
	}
}

// loadSettings reads configuration once per invocation.
func (a *app) loadSettings() (*config.Settings, error) {
	if a.settings != nil {
		return a.settings, nil
	}
	cfg, err := config.Load(config.LoadOptions{ConfigFile: a.configFile, EnvFile: a.envFile})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.settings = cfg
	// Logs go to stderr so command output stays clean.
	a.log = logger.New("cli").WithOutput(a.errOut).WithLevel(logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

func (a *app) client(ctx context.Context) (genaiClient, error) {
	cfg, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	return a.newClient(ctx, cfg, a.log)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "genai",
		Short:         "Multi-provider GenAI CLI",
		Long:          `genai talks to OpenAI, AWS Bedrock and Google Gemini through one interface.`,
		Version:       orchestrator.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML settings file (default $GENAI_CONFIG)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file (default .env)")

	root.AddCommand(generateCmd(a))
	root.AddCommand(chatCmd(a))
	root.AddCommand(batchCmd(a))
	root.AddCommand(providersCmd(a))
	root.AddCommand(modelsCmd(a))
	root.AddCommand(serveCmd(a))
	root.AddCommand(newProjectCmd(a))

	return root
}

func providerNames() []string {
	names := make([]string, 0, 3)
	for _, p := range llm.ProviderTypes() {
		names = append(names, string(p))
	}
	return names
}

// addProviderFlag registers the required --provider/-p flag with shell
// completion for the supported providers.
func addProviderFlag(cmd *cobra.Command, target *string) {
	names := providerNames()
	cmd.Flags().StringVarP(target, "provider", "p", "", "LLM provider ("+strings.Join(names, "|")+")")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.RegisterFlagCompletionFunc("provider", cobra.FixedCompletions(names, cobra.ShellCompDirectiveNoFileComp))
}

func validateProvider(name string) error {
	if _, err := llm.ParseProviderType(name); err != nil {
		return fmt.Errorf("invalid value %q for --provider: choose from %s", name, strings.Join(providerNames(), ", "))
	}
	return nil
}

// sampling builds llm.Sampling from flags; unset float flags stay nil so the
// provider defaults apply.
func sampling(cmd *cobra.Command, model string, maxTokens int, temperature, topP float64) llm.Sampling {
	s := llm.Sampling{Model: model, MaxTokens: maxTokens}
	if cmd.Flags().Changed("temperature") {
		s.Temperature = llm.Float(temperature)
	}
	if cmd.Flags().Lookup("top-p") != nil && cmd.Flags().Changed("top-p") {
		s.TopP = llm.Float(topP)
	}
	return s
}

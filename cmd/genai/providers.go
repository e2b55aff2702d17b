// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const shownModels = 3

func providersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available providers and their models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			info := client.ProviderInfo()
			health := client.HealthCheck(ctx)

			names := make([]string, 0, len(info))
			for name := range info {
				names = append(names, name)
			}
			sort.Strings(names)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tSTATUS\tMODELS")
			for _, name := range names {
				status := "Unavailable"
				if health[name] {
					status = "Healthy"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, status, modelSummary(info[name].Models))
			}
			return tw.Flush()
		},
	}
}

// modelSummary shows the first few models and a count of the rest.
func modelSummary(models []string) string {
	if len(models) <= shownModels {
		return strings.Join(models, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(models[:shownModels], ", "), len(models)-shownModels)
}

func modelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "models <provider>",
		Short:     "List available models for a specific provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: providerNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			models, err := client.AvailableModels(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Available models for %s:\n", args[0])
			for _, m := range models {
				fmt.Fprintf(out, "  - %s\n", m)
			}
			return nil
		},
	}
}

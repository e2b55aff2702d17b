// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API and dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.APIHost = host
			}
			if cmd.Flags().Changed("port") {
				cfg.APIPort = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default $API_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default $API_PORT)")

	return cmd
}

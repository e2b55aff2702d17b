// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"genaikit/scaffold"
	"genaikit/shared/logger"
)

func newProjectCmd(a *app) *cobra.Command {
	var (
		varsFile, outputDir string
		noInput, overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "new [key=value ...]",
		Short: "Generate a new GenAI client project",
		Long: `Renders the built-in project template. Variables come from the built-in
defaults, then --vars, then key=value arguments. Unless --no-input is given,
every variable not set on the command line is asked for interactively.`,
		Example: `  genai new --no-input project_name="Acme Bot" author_name="Ada"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := scaffold.DefaultVariables()
			if err != nil {
				return err
			}
			if varsFile != "" {
				if err := vars.LoadFile(varsFile); err != nil {
					return err
				}
			}
			if err := vars.ApplyAssignments(args); err != nil {
				return err
			}
			if !noInput {
				if err := vars.Prompt(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			result, err := scaffold.Generate(vars, scaffold.Options{
				OutputDir: outputDir,
				Overwrite: overwrite,
				Logger:    logger.New("scaffold").WithOutput(a.errOut).WithLevel(logger.WARN),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s (%d files)\n", result.Dir, len(result.Files))
			for _, f := range result.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&varsFile, "vars", "", "YAML file with template variables")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "parent directory for the new project")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "do not prompt for variables")
	cmd.Flags().BoolVarP(&overwrite, "overwrite", "f", false, "write into an existing project directory")

	return cmd
}

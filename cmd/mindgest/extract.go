package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mindgest/internal/app"
	"github.com/dgallion1/mindgest/internal/config"
)

func newExtractCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the plain text extracted from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			desc, data, err := readDocument(args[0], cfg.MaxUploadBytes)
			if err != nil {
				return err
			}

			comps, err := app.BuildExtractor(cmd.Context(), cfg, root.logger(stderr))
			if err != nil {
				return err
			}
			defer comps.Close()

			ex, err := extractWithProgress(cmd.Context(), comps.Parsers, desc, data, stderr)
			if err != nil {
				return err
			}
			fmt.Fprintf(stderr, "kind=%s method=%s pages=%d synthetic=%t\n", ex.Kind, ex.Method, ex.Pages, ex.Synthetic)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), ex.Text)
			return err
		},
	}
}

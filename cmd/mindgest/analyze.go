package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mindgest/internal/app"
	"github.com/dgallion1/mindgest/internal/config"
	"github.com/dgallion1/mindgest/internal/document"
	"github.com/dgallion1/mindgest/internal/render"
)

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Extract a document and run summary, key points, outline and mind map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "md", "html", "json":
			default:
				return fmt.Errorf("--format must be md, html or json, got %q", format)
			}

			stderr := cmd.ErrOrStderr()
			log := root.logger(stderr)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			desc, data, err := readDocument(args[0], cfg.MaxUploadBytes)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			comps, err := app.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer comps.Close()

			ex, err := extractWithProgress(ctx, comps.Parsers, desc, data, stderr)
			if err != nil {
				return err
			}
			if ex.Synthetic {
				fmt.Fprintln(stderr, "warning: no readable text, analysing a generated description")
			}

			fmt.Fprintln(stderr, "analysing...")
			res, err := comps.Analyzer.AnalyzeExtraction(ctx, ex)
			if res == nil {
				return err
			}
			if failed := document.FailedTasks(err); len(failed) > 0 {
				fmt.Fprintf(stderr, "warning: fallback used for %v: %v\n", failed, err)
			}

			out := cmd.OutOrStdout()
			title := filepath.Base(args[0])
			switch format {
			case "md":
				_, err = fmt.Fprint(out, render.Markdown(title, res))
			case "html":
				var page []byte
				if page, err = render.HTML(title, res); err == nil {
					_, err = out.Write(page)
				}
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(res)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md, html or json")
	return cmd
}

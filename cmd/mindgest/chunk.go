package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mindgest/internal/app"
	"github.com/dgallion1/mindgest/internal/chunker"
	"github.com/dgallion1/mindgest/internal/config"
)

func newChunkCmd(root *rootOptions) *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Show where a document's text would be split for long-document analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr := cmd.ErrOrStderr()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if size <= 0 {
				size = cfg.ChunkSize
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

			out := cmd.OutOrStdout()
			runes := len([]rune(ex.Text))
			if runes <= cfg.LongDocThreshold {
				fmt.Fprintf(out, "%d chars is within the long-document threshold (%d); analysed in one call\n", runes, cfg.LongDocThreshold)
			}
			for _, c := range chunker.Split(ex.Text, size) {
				fmt.Fprintf(out, "chunk %d/%d  chars=%d  tokens~%d  starts %q\n",
					c.Index+1, c.Total, len([]rune(c.Text)), chunker.EstimateTokens(c.Text), firstLine(c.Text, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 0, "chunk size in characters (default CHUNK_SIZE)")
	return cmd
}

func firstLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > max {
		s = string(r[:max]) + "..."
	}
	return s
}

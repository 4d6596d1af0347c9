package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/mindgest/internal/document"
	"github.com/dgallion1/mindgest/internal/parser"
	"github.com/dgallion1/mindgest/internal/pipeline"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "mindgest",
		Short:         "Summarise documents into key points, outlines and mind maps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(
		newAnalyzeCmd(opts),
		newExtractCmd(opts),
		newChunkCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// readDocument loads path and resolves its format from the extension.
func readDocument(path string, maxBytes int64) (document.Descriptor, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Descriptor{}, nil, err
	}
	desc, err := parser.Resolve("", filepath.Base(path), int64(len(data)), maxBytes)
	if err != nil {
		return document.Descriptor{}, nil, err
	}
	return desc, data, nil
}

// extractWithProgress runs extraction, printing progress lines to w.
func extractWithProgress(ctx context.Context, ex pipeline.Extractor, desc document.Descriptor, data []byte, w io.Writer) (*document.Extraction, error) {
	last := -1
	progress := func(ev document.ProgressEvent) {
		if ev.Percent == last {
			return
		}
		last = ev.Percent
		if ev.TotalPages > 0 {
			fmt.Fprintf(w, "[%3d%%] %s page %d/%d\n", ev.Percent, ev.Stage, ev.Page, ev.TotalPages)
			return
		}
		fmt.Fprintf(w, "[%3d%%] %s\n", ev.Percent, ev.Stage)
	}
	return ex.Extract(ctx, desc, data, progress)
}

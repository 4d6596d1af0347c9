package analyze

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mindgest/internal/ai"
	"github.com/dgallion1/mindgest/internal/chunker"
	"github.com/dgallion1/mindgest/internal/document"
)

// summarize asks for one summary of short text. Long text is summarised per
// chunk in parallel, then the partial summaries are synthesised with one
// more request.
func (a *Analyzer) summarize(ctx context.Context, text string) (string, error) {
	if utf8.RuneCountInString(text) <= a.opts.LongDocThreshold {
		return a.call(ctx, ai.NewRequest(document.TaskSummary, text))
	}

	chunks := chunker.Split(text, a.opts.ChunkSize)
	log := a.log.With("task", document.TaskSummary, "chunks", len(chunks))
	log.Info("summarising long document in parts", "estimated_tokens", chunker.EstimateTokens(text))

	partials := make([]string, len(chunks))
	var (
		mu      sync.Mutex
		lastErr error
	)
	var g errgroup.Group
	g.SetLimit(a.opts.MaxConcurrentAI)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := a.call(ctx, ai.NewRequest(document.TaskSummary, partLabel(i, len(chunks), c.Text)))
			if err != nil {
				log.Warn("partial summary failed", "chunk", i, "error", err)
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			partials[i] = strings.TrimSpace(out)
			return nil
		})
	}
	_ = g.Wait()

	var kept []string
	for _, p := range partials {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no partial summaries")
		}
		return "", lastErr
	}
	if len(kept) < len(chunks) {
		log.Warn("synthesising from incomplete parts", "kept", len(kept))
	}

	final, err := a.call(ctx, ai.NewRequest(document.TaskSummary, ai.SynthesisContent(kept)))
	if err != nil {
		// The ordered partials are still a usable summary.
		return strings.Join(kept, "\n\n"), err
	}
	return final, nil
}

package analyze

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mindgest/internal/ai"
	"github.com/dgallion1/mindgest/internal/chunker"
	"github.com/dgallion1/mindgest/internal/document"
	"github.com/dgallion1/mindgest/internal/mindmap"
	"github.com/dgallion1/mindgest/internal/repair"
)

// mindMap derives the map from the summary under the watchdog. Without a
// summary it is built locally from the raw text.
func (a *Analyzer) mindMap(ctx context.Context, text, summary string) (document.MindMapNode, error) {
	source := strings.TrimSpace(summary)
	if source == "" {
		return mindmap.Fallback(text), nil
	}

	wctx, cancel := context.WithTimeout(ctx, a.opts.MindMapWatchdog)
	defer cancel()

	type result struct {
		node document.MindMapNode
		err  error
	}
	done := make(chan result, 1)
	go func() {
		n, err := a.buildMindMap(wctx, source)
		done <- result{n, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return mindmap.Fallback(source), r.err
		}
		return r.node, nil
	case <-wctx.Done():
		if err := ctx.Err(); err != nil {
			return mindmap.Fallback(source), err
		}
		a.log.Error("mind map watchdog expired", "after", a.opts.MindMapWatchdog)
		return mindmap.Fallback(source), fmt.Errorf("mind map watchdog: %w", document.ErrTimeout)
	}
}

func (a *Analyzer) buildMindMap(ctx context.Context, source string) (document.MindMapNode, error) {
	if utf8.RuneCountInString(source) <= a.opts.MindMapDirectLimit {
		raw, err := a.call(ctx, ai.NewRequest(document.TaskMindMap, source))
		if err != nil {
			return document.MindMapNode{}, err
		}
		node, ok := a.parseMindMap(raw)
		if !ok {
			return mindmap.Fallback(source), nil
		}
		return node, nil
	}

	chunks := chunker.Split(source, a.opts.ChunkSize)
	maps := make([]document.MindMapNode, len(chunks))
	var (
		mu       sync.Mutex
		failures int
		lastErr  error
	)
	var g errgroup.Group
	g.SetLimit(a.opts.MaxConcurrentAI)
	for i, c := range chunks {
		g.Go(func() error {
			raw, err := a.call(ctx, ai.NewRequest(document.TaskMindMap, partLabel(i, len(chunks), c.Text)))
			if err != nil {
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				return nil
			}
			if node, ok := a.parseMindMap(raw); ok {
				maps[i] = node
			}
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(chunks) {
		return document.MindMapNode{}, lastErr
	}
	merged := mindmap.Merge(maps)
	if len(merged.Children) == 0 {
		return mindmap.Fallback(source), nil
	}
	return merged, nil
}

// parseMindMap repairs and bounds a model-produced map. A map without
// branches is not usable.
func (a *Analyzer) parseMindMap(raw string) (document.MindMapNode, bool) {
	var node document.MindMapNode
	outcome, err := repair.Decode(raw, repair.ShapeObject, &node)
	if err != nil {
		a.log.Warn("mind map response unusable", "error", err, "cleaned_len", len(outcome.Cleaned))
		return document.MindMapNode{}, false
	}
	if outcome.Step != "raw" {
		a.log.Debug("mind map response repaired", "step", outcome.Step)
	}
	if len(node.Children) == 0 {
		return document.MindMapNode{}, false
	}
	return mindmap.Finalize(node), true
}

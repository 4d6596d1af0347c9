// Package analyze runs the AI tasks for one document and assembles the
// result.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/mindgest/internal/ai"
	"github.com/dgallion1/mindgest/internal/config"
	"github.com/dgallion1/mindgest/internal/document"
)

// Options bounds how much text each task sees and how long it may take.
type Options struct {
	LongDocThreshold   int
	ChunkSize          int
	MindMapDirectLimit int
	KeyPointsPrefix    int
	OutlinePrefix      int
	MaxConcurrentAI    int
	CallTimeout        time.Duration
	MindMapWatchdog    time.Duration
}

// OptionsFromConfig copies the analysis settings out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		LongDocThreshold:   cfg.LongDocThreshold,
		ChunkSize:          cfg.ChunkSize,
		MindMapDirectLimit: cfg.MindMapDirectLimit,
		KeyPointsPrefix:    cfg.KeyPointsPrefix,
		OutlinePrefix:      cfg.OutlinePrefix,
		MaxConcurrentAI:    cfg.MaxConcurrentAI,
		CallTimeout:        cfg.CallTimeout,
		MindMapWatchdog:    cfg.MindMapWatchdog,
	}
}

func (o *Options) fillDefaults() {
	d := config.Default()
	if o.LongDocThreshold <= 0 {
		o.LongDocThreshold = d.LongDocThreshold
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.MindMapDirectLimit <= 0 {
		o.MindMapDirectLimit = d.MindMapDirectLimit
	}
	if o.KeyPointsPrefix <= 0 {
		o.KeyPointsPrefix = d.KeyPointsPrefix
	}
	if o.OutlinePrefix <= 0 {
		o.OutlinePrefix = d.OutlinePrefix
	}
	if o.MaxConcurrentAI <= 0 {
		o.MaxConcurrentAI = d.MaxConcurrentAI
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = d.CallTimeout
	}
	if o.MindMapWatchdog <= 0 {
		o.MindMapWatchdog = d.MindMapWatchdog
	}
}

// Analyzer produces an AnalysisResult from extracted text. It is safe for
// concurrent use; each call owns its own state.
type Analyzer struct {
	ai        ai.Completer
	sanitizer *ai.Sanitizer
	stats     *ai.Stats
	opts      Options
	log       *slog.Logger
}

func New(c ai.Completer, s *ai.Sanitizer, stats *ai.Stats, opts Options, log *slog.Logger) *Analyzer {
	opts.fillDefaults()
	return &Analyzer{ai: c, sanitizer: s, stats: stats, opts: opts, log: log}
}

// Analyze runs every task against text. The result is always complete:
// tasks that fail fall back to locally built content. The error joins one
// *document.TaskError per failed task.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*document.AnalysisResult, error) {
	return a.AnalyzeExtraction(ctx, &document.Extraction{Text: text})
}

// AnalyzeExtraction is Analyze with the extraction's headings available to
// the outline fallback.
func (a *Analyzer) AnalyzeExtraction(ctx context.Context, ex *document.Extraction) (*document.AnalysisResult, error) {
	text := strings.TrimSpace(ex.Text)
	log := a.log.With("text_len", len(text))
	start := time.Now()

	var (
		res                                  document.AnalysisResult
		sumErr, mindErr, pointsErr, outlnErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		res.Summary, sumErr = a.summarize(ctx, text)
		res.MindMapData, mindErr = a.mindMap(ctx, text, res.Summary)
		return nil
	})
	g.Go(func() error {
		res.KeyPoints, pointsErr = a.keyPoints(ctx, prefix(text, a.opts.KeyPointsPrefix))
		return nil
	})
	g.Go(func() error {
		res.Outline, outlnErr = a.outline(ctx, text, ex.Sections)
		return nil
	})
	_ = g.Wait()

	if res.KeyPoints == nil {
		res.KeyPoints = []string{}
	}
	if len(res.Outline) == 0 {
		res.Outline = FallbackOutline(text, ex.Sections)
	}

	var errs []error
	for _, te := range []struct {
		task document.Task
		err  error
	}{
		{document.TaskSummary, sumErr},
		{document.TaskKeyPoints, pointsErr},
		{document.TaskOutline, outlnErr},
		{document.TaskMindMap, mindErr},
	} {
		if te.err != nil {
			errs = append(errs, &document.TaskError{Task: te.task, Err: te.err})
		}
	}
	err := errors.Join(errs...)

	log.Info("analysis complete",
		"elapsed_ms", time.Since(start).Milliseconds(),
		"summary_len", len(res.Summary),
		"key_points", len(res.KeyPoints),
		"outline_nodes", len(res.Outline),
		"mindmap_nodes", res.MindMapData.Count(),
		"failed_tasks", document.FailedTasks(err),
	)
	return &res, err
}

// call issues one request, retrying exactly once with the aggressive
// sanitiser when the backend rejects the content on policy grounds.
func (a *Analyzer) call(ctx context.Context, req ai.Request) (string, error) {
	out, err := a.once(ctx, req)
	if err == nil || !ai.IsContentPolicy(err) {
		return out, err
	}

	a.stats.RecordPolicyRetry(req.Task)
	a.log.Warn("content policy rejection, retrying with sanitised content",
		"task", req.Task, "content_len", len(req.Content))
	req.Content = a.sanitizer.Aggressive(req.Content)
	out, err = a.once(ctx, req)
	if err != nil {
		return "", fmt.Errorf("after policy retry: %w", err)
	}
	return out, nil
}

func (a *Analyzer) once(ctx context.Context, req ai.Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.opts.CallTimeout)
	defer cancel()

	out, err := a.ai.Complete(callCtx, req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s call after %s: %w", req.Task, a.opts.CallTimeout, document.ErrTimeout)
		}
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s call: empty response", req.Task)
	}
	return out, nil
}

// prefix returns at most n runes of s.
func prefix(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func partLabel(i, n int, text string) string {
	return fmt.Sprintf("[Part %d/%d]\n%s", i+1, n, text)
}

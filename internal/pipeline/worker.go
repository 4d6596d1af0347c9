package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/mindgest/internal/document"
)

// Extractor turns an uploaded file into text.
type Extractor interface {
	Extract(ctx context.Context, desc document.Descriptor, data []byte, progress document.ProgressFunc) (*document.Extraction, error)
}

// Analyzer runs the AI tasks over extracted text.
type Analyzer interface {
	AnalyzeExtraction(ctx context.Context, ex *document.Extraction) (*document.AnalysisResult, error)
}

// Worker processes a single analysis job.
type Worker struct {
	extractor Extractor
	analyzer  Analyzer
	cache     *ResultCache
	log       *slog.Logger
}

func NewWorker(ex Extractor, an Analyzer, cache *ResultCache, log *slog.Logger) *Worker {
	return &Worker{
		extractor: ex,
		analyzer:  an,
		cache:     cache,
		log:       log,
	}
}

// Process runs extraction then analysis for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	desc := job.Descriptor()
	log := w.log.With("job_id", job.ID, "filename", desc.Name, "kind", desc.Kind)
	start := time.Now()

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	ex, err := w.extractor.Extract(ctx, desc, job.FileData(), job.SetProgress)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}

	hash := ContentHashHex([]byte(ex.Text))
	job.SetExtraction(ex, hash)
	log.Info("extracted document", "method", ex.Method, "pages", ex.Pages, "chars", len(ex.Text))

	// Phase 1.5: Cache check
	if res, ok := w.cache.Get(hash); ok {
		log.Info("cache hit, skipping analysis", "content_hash", hash)
		job.SetResult(res, nil, true)
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 2: Analyze
	job.SetStatus(StatusAnalyzing, "analyzing")
	res, err := w.analyzer.AnalyzeExtraction(ctx, ex)
	if ctx.Err() != nil {
		log.Warn("analysis cancelled", "error", ctx.Err())
		job.AddError(fmt.Sprintf("analyze: %s", ctx.Err()))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}
	if res == nil {
		if err == nil {
			err = errors.New("analyzer returned no result")
		}
		log.Error("analysis failed", "error", err)
		job.AddError(fmt.Sprintf("analyze: %s", err))
		job.SetStatus(StatusFailed, "analyzing")
		return
	}

	failed := document.FailedTasks(err)
	job.SetResult(res, failed, false)
	if len(failed) > 0 {
		for _, line := range strings.Split(err.Error(), "\n") {
			job.AddError(line)
		}
		log.Warn("analysis partial", "failed_tasks", failed, "elapsed", time.Since(start))
		job.SetStatus(StatusPartial, "done")
		return
	}

	w.cache.Add(hash, res)
	log.Info("analysis complete", "key_points", len(res.KeyPoints), "outline", len(res.Outline), "mindmap_nodes", res.MindMapData.Count(), "elapsed", time.Since(start))
	job.SetStatus(StatusCompleted, "done")
}

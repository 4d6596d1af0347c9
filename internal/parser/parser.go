package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/mindgest/internal/document"
)

// Extractor recovers plain text from one document format.
type Extractor interface {
	Extract(ctx context.Context, data []byte, name string, progress document.ProgressFunc) (*document.Extraction, error)
}

// Options configures the extractors built by NewSet.
type Options struct {
	PDFMinTextChars int
	OCRMinTextChars int
	OCRLanguage     string
	PageTimeout     time.Duration

	// Renderer and Recognizer drive the PDF OCR path. Either being nil
	// disables OCR.
	Renderer   Renderer
	Recognizer Recognizer
}

// Set maps every supported Kind to its extractor.
type Set struct {
	byKind map[document.Kind]Extractor
	log    *slog.Logger
}

// NewSet builds the extractor table.
func NewSet(opts Options, log *slog.Logger) *Set {
	md := &MarkdownExtractor{}
	generic := &EbookExtractor{}
	return &Set{
		byKind: map[document.Kind]Extractor{
			document.KindPDF:      NewPDFExtractor(opts, log),
			document.KindEPUB:     &EPUBExtractor{markdown: md},
			document.KindDOCX:     &DOCXExtractor{},
			document.KindHTML:     &HTMLExtractor{},
			document.KindMarkdown: md,
			document.KindText:     &TextExtractor{},
			document.KindCSV:      &CSVExtractor{},
			document.KindMOBI:     generic,
			document.KindAZW3:     generic,
		},
		log: log,
	}
}

// Extract runs the extractor for desc.Kind. Failures come back as
// *document.ExtractionError; an extractor that yields only whitespace is a
// failure too.
func (s *Set) Extract(ctx context.Context, desc document.Descriptor, data []byte, progress document.ProgressFunc) (*document.Extraction, error) {
	ex, ok := s.byKind[desc.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, desc.Kind)
	}
	if len(data) == 0 {
		return nil, &document.ExtractionError{Reason: "empty file"}
	}

	log := s.log.With("file", desc.Name, "kind", desc.Kind.String())
	start := time.Now()

	out, err := ex.Extract(ctx, data, desc.Name, progress)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ee *document.ExtractionError
		if !errors.As(err, &ee) {
			err = &document.ExtractionError{Reason: desc.Kind.String(), Err: err}
		}
		log.Warn("extraction failed", "error", err)
		return nil, err
	}
	if out == nil || strings.TrimSpace(out.Text) == "" {
		return nil, &document.ExtractionError{Reason: "no text found"}
	}
	out.Kind = desc.Kind

	progress.Emit(document.ProgressEvent{
		Stage:      document.StageDone,
		TotalPages: out.Pages,
		Percent:    100,
		Message:    "extraction complete",
	})
	log.Info("extraction complete",
		"chars", len(out.Text),
		"method", out.Method,
		"synthetic", out.Synthetic,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/mindgest/internal/document"
)

const (
	defaultPDFMinTextChars = 10
	defaultOCRMinTextChars = 100
	defaultPageTimeout     = 30 * time.Second
	maxOutlineTitles       = 10
)

var errNoStream = errors.New("content stream unavailable")

// PDFExtractor reads the text layer page by page, falls back to OCR for
// scanned documents and, failing that, describes the file from its metadata.
type PDFExtractor struct {
	minTextChars    int
	ocrMinTextChars int
	ocrLanguage     string
	pageTimeout     time.Duration
	renderer        Renderer
	recognizer      Recognizer
	log             *slog.Logger

	open       func(data []byte) (pageSource, error)
	openStream func(data []byte) (streamSource, error)
}

func NewPDFExtractor(opts Options, log *slog.Logger) *PDFExtractor {
	e := &PDFExtractor{
		minTextChars:    opts.PDFMinTextChars,
		ocrMinTextChars: opts.OCRMinTextChars,
		ocrLanguage:     opts.OCRLanguage,
		pageTimeout:     opts.PageTimeout,
		renderer:        opts.Renderer,
		recognizer:      opts.Recognizer,
		log:             log,
		open:            openLedongthuc,
		openStream:      openPDFCPU,
	}
	if e.minTextChars <= 0 {
		e.minTextChars = defaultPDFMinTextChars
	}
	if e.ocrMinTextChars <= 0 {
		e.ocrMinTextChars = defaultOCRMinTextChars
	}
	if e.pageTimeout <= 0 {
		e.pageTimeout = defaultPageTimeout
	}
	return e
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, name string, progress document.ProgressFunc) (*document.Extraction, error) {
	src, err := e.open(data)
	if err != nil {
		return nil, &document.ExtractionError{Reason: "open pdf", Err: err}
	}
	n := src.NumPage()
	if n <= 0 {
		return nil, &document.ExtractionError{Reason: "pdf has no pages"}
	}
	log := e.log.With("file", name, "pages", n)

	progress.Emit(document.ProgressEvent{
		Stage:      document.StageLoading,
		TotalPages: n,
		Percent:    5,
		Message:    "loading pdf",
	})

	stream := &lazyStream{open: e.openStream, data: data}
	var pages []string
	methods := map[string]int{}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress.Emit(document.ProgressEvent{
			Stage:      document.StageParsing,
			Page:       i,
			TotalPages: n,
			Percent:    min(5+i*45/n, 50),
		})

		text, method, err := e.extractPage(ctx, src, stream, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("pdf page abandoned", "page", i, "error", err)
			// The stuck goroutine keeps the old reader and stream.
			if src, err = e.open(data); err != nil {
				return nil, &document.ExtractionError{Reason: "reopen pdf", Err: err}
			}
			stream = &lazyStream{open: e.openStream, data: data}
			continue
		}
		if text != "" {
			pages = append(pages, text)
			methods[method]++
		}
	}

	full := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if utf8.RuneCountInString(full) >= e.minTextChars {
		log.Debug("pdf text layer read", "methods", methods)
		return &document.Extraction{Text: full, Pages: n, Method: "text-layer"}, nil
	}

	if e.renderer != nil && e.recognizer != nil {
		text, err := e.ocr(ctx, data, n, progress, log)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			log.Warn("ocr unavailable", "error", err)
		}
		if utf8.RuneCountInString(text) >= e.ocrMinTextChars {
			progress.Emit(document.ProgressEvent{
				Stage:      document.StageDone,
				TotalPages: n,
				Percent:    95,
				Message:    "ocr complete",
			})
			return &document.Extraction{Text: text, Pages: n, Method: "ocr"}, nil
		}
		log.Info("ocr produced too little text", "chars", utf8.RuneCountInString(text))
	}

	return &document.Extraction{
		Text:      syntheticDescription(name, n, src.OutlineTitles()),
		Pages:     n,
		Method:    "synthetic",
		Synthetic: true,
	}, nil
}

type pageResult struct {
	text, method string
}

// extractPage runs the text methods for one page under the page timeout.
func (e *PDFExtractor) extractPage(ctx context.Context, src pageSource, stream *lazyStream, page int) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.pageTimeout)
	defer cancel()

	done := make(chan pageResult, 1)
	go func() {
		done <- readPage(src, stream, page)
	}()

	select {
	case r := <-done:
		return r.text, r.method, nil
	case <-ctx.Done():
		return "", "", fmt.Errorf("page %d: %w", page, document.ErrTimeout)
	}
}

// readPage tries each method in order and keeps the first non-trivial result.
func readPage(src pageSource, stream *lazyStream, page int) pageResult {
	methods := []struct {
		name string
		fn   func() (string, error)
	}{
		{"plain", func() (string, error) { return src.PlainText(page) }},
		{"runs", func() (string, error) { return src.RunsText(page) }},
		{"stream", func() (string, error) {
			s := stream.get()
			if s == nil {
				return "", errNoStream
			}
			return s.PageText(page)
		}},
	}
	for _, m := range methods {
		text, err := safeCall(m.fn)
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); hasWordRune(text) {
			return pageResult{text: text, method: m.name}
		}
	}
	return pageResult{}
}

func safeCall(fn func() (string, error)) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// lazyStream opens the content-stream reader on first use. A failed open is
// not retried.
type lazyStream struct {
	open func([]byte) (streamSource, error)
	data []byte

	mu     sync.Mutex
	src    streamSource
	opened bool
}

func (l *lazyStream) get() streamSource {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.opened {
		l.opened = true
		if l.open != nil {
			src, err := safeOpen(l.open, l.data)
			if err == nil {
				l.src = src
			}
		}
	}
	return l.src
}

func safeOpen(open func([]byte) (streamSource, error), data []byte) (src streamSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return open(data)
}

// ocr renders and recognises every page in order. Pages that fail are
// skipped.
func (e *PDFExtractor) ocr(ctx context.Context, data []byte, n int, progress document.ProgressFunc, log *slog.Logger) (string, error) {
	progress.Emit(document.ProgressEvent{
		Stage:      document.StageOCR,
		TotalPages: n,
		Percent:    50,
		Message:    "no text layer, running ocr",
	})

	dir, err := os.MkdirTemp("", "mindgest-ocr-*")
	if err != nil {
		return "", fmt.Errorf("create ocr dir: %w", err)
	}
	defer os.RemoveAll(dir)
	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write ocr input: %w", err)
	}

	var parts []string
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := e.ocrPage(ctx, pdfPath, i)
		if err != nil {
			log.Warn("ocr page skipped", "page", i, "error", err)
		} else if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
		progress.Emit(document.ProgressEvent{
			Stage:      document.StageOCR,
			Page:       i,
			TotalPages: n,
			Percent:    50 + i*40/n,
		})
	}
	return strings.Join(parts, "\n\n"), nil
}

func (e *PDFExtractor) ocrPage(ctx context.Context, pdfPath string, page int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.pageTimeout)
	defer cancel()

	img, err := e.renderer.RenderPage(ctx, pdfPath, page)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	text, err := e.recognizer.Recognize(ctx, img, e.ocrLanguage)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

var topicGuesses = []struct {
	keywords []string
	topic    string
}{
	{[]string{"guide", "handbook", "manual", "tutorial", "指南", "手册", "教程"},
		"An instructional guide. Expect methods, step-by-step procedures, worked cases and common questions."},
	{[]string{"report", "annual", "报告"},
		"A report. Expect findings, figures and conclusions for a period or project."},
	{[]string{"paper", "thesis", "research", "study", "论文", "研究"},
		"An academic or research text. Expect background, method, results and discussion."},
	{[]string{"contract", "agreement", "terms", "合同", "协议"},
		"A legal agreement. Expect parties, obligations, terms and signatures."},
	{[]string{"invoice", "receipt", "statement", "发票"},
		"A financial record. Expect line items, amounts and dates."},
	{[]string{"slides", "presentation", "deck", "演示"},
		"A slide deck. Expect short headings with bullet points per page."},
}

// guessTopic infers a likely topic from keywords in the file name.
func guessTopic(name string) string {
	lower := strings.ToLower(name)
	for _, g := range topicGuesses {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.topic
			}
		}
	}
	return fmt.Sprintf("No topic could be inferred from %q. Run OCR on the file for an accurate analysis.", name)
}

// syntheticDescription stands in for the text of a PDF that has neither a
// text layer nor usable OCR output.
func syntheticDescription(name string, pages int, outline []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document %q has no extractable text.\n\n", name)
	b.WriteString("Document information:\n")
	fmt.Fprintf(&b, "- File name: %s\n", name)
	fmt.Fprintf(&b, "- Pages: %d\n", pages)
	b.WriteString("- Type: scanned or image-only PDF\n")

	if len(outline) > 0 {
		b.WriteString("\nDocument structure:\n")
		for i, title := range outline[:min(len(outline), maxOutlineTitles)] {
			fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		}
		if extra := len(outline) - maxOutlineTitles; extra > 0 {
			fmt.Fprintf(&b, "... and %d more\n", extra)
		}
	}

	b.WriteString("\nLikely topic:\n")
	b.WriteString(guessTopic(name))
	b.WriteString("\n\nThis description was generated from file metadata only.")
	return b.String()
}

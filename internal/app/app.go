// Package app wires configuration into the extraction and analysis
// components shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/mindgest/internal/ai"
	"github.com/dgallion1/mindgest/internal/analyze"
	"github.com/dgallion1/mindgest/internal/config"
	"github.com/dgallion1/mindgest/internal/parser"
)

// statsWindow is how far back the latency percentiles look.
const statsWindow = 15 * time.Minute

// Components holds the long-lived pieces built from a Config.
type Components struct {
	Parsers  *parser.Set
	Analyzer *analyze.Analyzer
	Stats    *ai.Stats

	closers []func()
}

// BuildExtractor constructs only the parsers and their OCR engine, for
// callers that never contact the completion backend.
func BuildExtractor(ctx context.Context, cfg config.Config, log *slog.Logger) (*Components, error) {
	c := &Components{}
	opts, err := c.parserOptions(ctx, cfg, nil, ai.NewSanitizer(cfg.SanitizeTerms))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Parsers = parser.NewSet(opts, log)
	return c, nil
}

// Build constructs the AI backend, the OCR engine and the parsers.
// Call Close when done.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*Components, error) {
	sanitizer := ai.NewSanitizer(cfg.SanitizeTerms)
	stats := ai.NewStats(statsWindow)
	c := &Components{Stats: stats}

	backend, err := ai.NewBackend(ctx, cfg, sanitizer)
	if err != nil {
		return nil, fmt.Errorf("ai backend: %w", err)
	}
	c.closers = append(c.closers, backend.Close)

	opts, err := c.parserOptions(ctx, cfg, backend, sanitizer)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Parsers = parser.NewSet(opts, log)

	pacer := ai.NewPacer(backend, cfg.AIRequestsPerSecond, cfg.AIRateLimitRetries, stats, log)
	c.Analyzer = analyze.New(pacer, sanitizer, stats, analyze.OptionsFromConfig(cfg), log)

	log.Info("components ready",
		"ai_backend", cfg.AIBackend,
		"ocr_engine", cfg.OCREngine,
		"max_concurrent_ai", cfg.MaxConcurrentAI,
	)
	return c, nil
}

func (c *Components) parserOptions(ctx context.Context, cfg config.Config, backend ai.Backend, s *ai.Sanitizer) (parser.Options, error) {
	opts := parser.Options{
		PDFMinTextChars: cfg.PDFMinTextChars,
		OCRMinTextChars: cfg.OCRMinTextChars,
		OCRLanguage:     cfg.OCRLanguage,
		PageTimeout:     cfg.PageTimeout,
	}
	switch cfg.OCREngine {
	case "tesseract":
		opts.Renderer = &parser.PdftoppmRenderer{DPI: cfg.OCRRenderDPI}
		opts.Recognizer = parser.TesseractRecognizer{}
	case "gemini":
		opts.Renderer = &parser.PdftoppmRenderer{DPI: cfg.OCRRenderDPI}
		if g, ok := backend.(*ai.GeminiClient); ok {
			opts.Recognizer = g
			break
		}
		g, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, s)
		if err != nil {
			return opts, fmt.Errorf("gemini ocr: %w", err)
		}
		c.closers = append(c.closers, g.Close)
		opts.Recognizer = g
	case "none", "":
	default:
		return opts, fmt.Errorf("unknown ocr engine %q", cfg.OCREngine)
	}
	return opts, nil
}

// Close releases backend connections.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

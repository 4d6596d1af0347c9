package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Renderer rasterises one PDF page (1-based) to an image.
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error)
}

// Recognizer turns a page image into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, lang string) (string, error)
}

// PdftoppmRenderer renders pages with poppler's pdftoppm.
type PdftoppmRenderer struct {
	DPI int
}

func (r *PdftoppmRenderer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	dir, err := os.MkdirTemp("", "mindgest-render-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dpi := r.DPI
	if dpi <= 0 {
		dpi = 150
	}
	root := filepath.Join(dir, "page")
	p := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-r", strconv.Itoa(dpi), "-f", p, "-l", p, "-singlefile",
		pdfPath, root)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, strings.TrimSpace(stderr.String()))
	}
	return os.ReadFile(root + ".png")
}

// TesseractRecognizer runs the tesseract CLI over stdin.
type TesseractRecognizer struct{}

func (TesseractRecognizer) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	if lang == "" {
		lang = "eng"
	}
	cmd := exec.CommandContext(ctx, "tesseract", "stdin", "stdout", "-l", lang, "--psm", "3")
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

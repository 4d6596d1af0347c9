package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindgest/internal/document"
)

type fakeSource struct {
	pages   int
	plain   func(page int) (string, error)
	runs    func(page int) (string, error)
	outline []string
}

func (f *fakeSource) NumPage() int { return f.pages }

func (f *fakeSource) PlainText(page int) (string, error) {
	if f.plain == nil {
		return "", nil
	}
	return f.plain(page)
}

func (f *fakeSource) RunsText(page int) (string, error) {
	if f.runs == nil {
		return "", nil
	}
	return f.runs(page)
}

func (f *fakeSource) OutlineTitles() []string { return f.outline }

type fakeStream func(page int) (string, error)

func (f fakeStream) PageText(page int) (string, error) { return f(page) }

type fakeRenderer struct {
	mu    sync.Mutex
	pages []int
}

func (r *fakeRenderer) RenderPage(_ context.Context, _ string, page int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
	return []byte(fmt.Sprintf("image-%d", page)), nil
}

type fakeRecognizer struct {
	text func(image []byte) (string, error)
	lang string
}

func (r *fakeRecognizer) Recognize(_ context.Context, image []byte, lang string) (string, error) {
	r.lang = lang
	return r.text(image)
}

func newTestPDF(src pageSource, opts Options) *PDFExtractor {
	e := NewPDFExtractor(opts, discardLogger())
	e.open = func([]byte) (pageSource, error) { return src, nil }
	e.openStream = func([]byte) (streamSource, error) { return nil, errors.New("no stream") }
	return e
}

type recorder struct {
	events []document.ProgressEvent
}

func (r *recorder) progress() document.ProgressFunc {
	return func(ev document.ProgressEvent) { r.events = append(r.events, ev) }
}

func (r *recorder) stage(s document.Stage) []document.ProgressEvent {
	var out []document.ProgressEvent
	for _, ev := range r.events {
		if ev.Stage == s {
			out = append(out, ev)
		}
	}
	return out
}

func TestPDFExtractor_TextLayer(t *testing.T) {
	src := &fakeSource{
		pages: 200,
		plain: func(p int) (string, error) { return fmt.Sprintf("Page %d text.", p), nil },
	}
	renderer := &fakeRenderer{}
	e := newTestPDF(src, Options{Renderer: renderer, Recognizer: &fakeRecognizer{}})
	rec := &recorder{}

	out, err := e.Extract(context.Background(), []byte("pdf"), "long.pdf", rec.progress())
	require.NoError(t, err)

	assert.Equal(t, "text-layer", out.Method)
	assert.False(t, out.Synthetic)
	assert.Equal(t, 200, out.Pages)
	assert.True(t, strings.HasPrefix(out.Text, "Page 1 text.\n\nPage 2 text."))
	assert.Empty(t, renderer.pages, "ocr must not run when the text layer is present")

	require.NotEmpty(t, rec.events)
	assert.Equal(t, document.ProgressEvent{Stage: document.StageLoading, TotalPages: 200, Percent: 5, Message: "loading pdf"}, rec.events[0])
	parsing := rec.stage(document.StageParsing)
	require.Len(t, parsing, 200)
	prev := 0
	for _, ev := range parsing {
		assert.GreaterOrEqual(t, ev.Percent, prev)
		assert.LessOrEqual(t, ev.Percent, 50)
		prev = ev.Percent
	}
	assert.Equal(t, 5, parsing[0].Percent)
	assert.Equal(t, 50, parsing[199].Percent)
	assert.Empty(t, rec.stage(document.StageOCR))
}

func TestPDFExtractor_MethodFallback(t *testing.T) {
	src := &fakeSource{
		pages: 3,
		plain: func(p int) (string, error) {
			switch p {
			case 1:
				panic("broken font")
			case 2:
				return "  ", nil
			}
			return "", errors.New("no text")
		},
		runs: func(p int) (string, error) {
			if p == 1 {
				return "Runs text one", nil
			}
			return "", nil
		},
	}
	e := newTestPDF(src, Options{})
	e.openStream = func([]byte) (streamSource, error) {
		return fakeStream(func(p int) (string, error) { return fmt.Sprintf("Stream text %d", p), nil }), nil
	}

	out, err := e.Extract(context.Background(), []byte("pdf"), "mixed.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, "Runs text one\n\nStream text 2\n\nStream text 3", out.Text)
}

func TestPDFExtractor_PageTimeoutReopens(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	src := &fakeSource{
		pages: 3,
		plain: func(p int) (string, error) {
			if p == 2 {
				<-block
			}
			return fmt.Sprintf("Page %d body", p), nil
		},
	}
	e := newTestPDF(src, Options{PageTimeout: 50 * time.Millisecond})
	opens := 0
	e.open = func([]byte) (pageSource, error) {
		opens++
		return src, nil
	}

	out, err := e.Extract(context.Background(), []byte("pdf"), "stuck.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, opens)
	assert.Equal(t, "Page 1 body\n\nPage 3 body", out.Text)
}

func TestPDFExtractor_OCR(t *testing.T) {
	src := &fakeSource{pages: 10}
	renderer := &fakeRenderer{}
	recognizer := &fakeRecognizer{text: func(img []byte) (string, error) {
		return "Recognised words from " + string(img), nil
	}}
	e := newTestPDF(src, Options{Renderer: renderer, Recognizer: recognizer, OCRLanguage: "deu"})
	rec := &recorder{}

	out, err := e.Extract(context.Background(), []byte("pdf"), "scan.pdf", rec.progress())
	require.NoError(t, err)

	assert.Equal(t, "ocr", out.Method)
	assert.False(t, out.Synthetic)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, renderer.pages)
	assert.Equal(t, "deu", recognizer.lang)
	assert.True(t, strings.HasPrefix(out.Text, "Recognised words from image-1\n\nRecognised words from image-2"))

	ocr := rec.stage(document.StageOCR)
	require.Len(t, ocr, 11)
	assert.Equal(t, 50, ocr[0].Percent)
	assert.Equal(t, 54, ocr[1].Percent)
	assert.Equal(t, 90, ocr[10].Percent)
	done := rec.stage(document.StageDone)
	require.Len(t, done, 1)
	assert.Equal(t, 95, done[0].Percent)
}

func TestPDFExtractor_OCRSkipsFailedPages(t *testing.T) {
	src := &fakeSource{pages: 4}
	recognizer := &fakeRecognizer{text: func(img []byte) (string, error) {
		if bytes.Equal(img, []byte("image-2")) {
			return "", errors.New("tesseract crashed")
		}
		return strings.Repeat("word ", 10) + string(img), nil
	}}
	e := newTestPDF(src, Options{Renderer: &fakeRenderer{}, Recognizer: recognizer})

	out, err := e.Extract(context.Background(), []byte("pdf"), "scan.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, "ocr", out.Method)
	assert.NotContains(t, out.Text, "image-2")
	assert.Contains(t, out.Text, "image-4")
}

func TestPDFExtractor_SyntheticDescription(t *testing.T) {
	var outline []string
	for i := 1; i <= 12; i++ {
		outline = append(outline, fmt.Sprintf("Chapter %d", i))
	}
	src := &fakeSource{pages: 7, outline: outline}
	recognizer := &fakeRecognizer{text: func([]byte) (string, error) { return "x", nil }}
	e := newTestPDF(src, Options{Renderer: &fakeRenderer{}, Recognizer: recognizer})

	out, err := e.Extract(context.Background(), []byte("pdf"), "Camera User Guide.pdf", nil)
	require.NoError(t, err)

	assert.True(t, out.Synthetic)
	assert.Equal(t, "synthetic", out.Method)
	assert.Contains(t, out.Text, "Camera User Guide.pdf")
	assert.Contains(t, out.Text, "- Pages: 7")
	assert.Contains(t, out.Text, "10. Chapter 10")
	assert.NotContains(t, out.Text, "Chapter 11")
	assert.Contains(t, out.Text, "... and 2 more")
	assert.Contains(t, out.Text, "instructional guide")
}

func TestPDFExtractor_NoOCRConfigured(t *testing.T) {
	e := newTestPDF(&fakeSource{pages: 2}, Options{})
	rec := &recorder{}

	out, err := e.Extract(context.Background(), []byte("pdf"), "scan.pdf", rec.progress())
	require.NoError(t, err)

	assert.True(t, out.Synthetic)
	assert.Contains(t, out.Text, "No topic could be inferred")
	assert.Empty(t, rec.stage(document.StageOCR))
}

func TestPDFExtractor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newTestPDF(&fakeSource{pages: 2}, Options{})

	_, err := e.Extract(ctx, []byte("pdf"), "x.pdf", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 720 Td\n(Hello PDF) Tj\n0 -14 Td\n[(Wor) -20 (ld)] TJ\nT*\n(caf\\351) '\nET\n")
	assert.Equal(t, "Hello PDF World café", textFromContentStream(stream))
}

func TestTextFromContentStream_NestedAndEscapedParens(t *testing.T) {
	stream := []byte("BT\n(a \\(b\\) c) Tj\n0 -14 Td\n(f(x) = 1) Tj\n(open \\) Tj\nET\n")
	assert.Equal(t, "a (b) c f(x) = 1", textFromContentStream(stream))
}

func TestDecodePDFString(t *testing.T) {
	assert.Equal(t, "a b\n(c)", decodePDFString([]byte(`a\040b\n\(c\)`)))
	assert.Equal(t, "café", decodePDFString([]byte(`caf\351`)))
	assert.Equal(t, "naïve", decodePDFString([]byte("naïve")))
	assert.Equal(t, "“quoted”", decodePDFString([]byte(`\223quoted\224`)))
}

func TestLiteralStrings(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{`(plain) Tj`, []string{"plain"}},
		{`[(Wor) -20 (ld)] TJ`, []string{"Wor", "ld"}},
		{`(a \) b) Tj`, []string{`a \) b`}},
		{`(outer (inner) tail) Tj`, []string{"outer (inner) tail"}},
		{`(unterminated Tj`, nil},
	}
	for _, tt := range tests {
		var got []string
		for _, lit := range literalStrings([]byte(tt.line)) {
			got = append(got, string(lit))
		}
		assert.Equal(t, tt.want, got, tt.line)
	}
}

// minimalPDF assembles a one-page PDF showing text in Helvetica.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPDFExtractor_RealDocument(t *testing.T) {
	e := NewPDFExtractor(Options{}, discardLogger())

	out, err := e.Extract(context.Background(), minimalPDF("Hello PDF world"), "hello.pdf", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, out.Pages)
	assert.Equal(t, "text-layer", out.Method)
	assert.Contains(t, out.Text, "Hello PDF world")
}

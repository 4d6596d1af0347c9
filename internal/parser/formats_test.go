package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindgest/internal/document"
)

func TestHTMLExtractor(t *testing.T) {
	input := `<html><head><title>T</title><style>x{}</style></head><body>
<script>evil()</script>
<h1>Main</h1>
<p>Hello <b>bold</b>
   world</p>
<div>Line<br>Break</div>
<img alt="A chart"><noscript>no</noscript>
<table><tr><td>a</td><td>b</td></tr></table>
</body></html>`

	out, err := (&HTMLExtractor{}).Extract(context.Background(), []byte(input), "page.html", nil)
	require.NoError(t, err)

	assert.Equal(t, "Main\n\nHello bold world\n\nLine\nBreak\n\nA chart\n\na b", out.Text)
	assert.Equal(t, []document.Section{{Level: 1, Title: "Main"}}, out.Sections)
	assert.NotContains(t, out.Text, "evil")
}

func TestCSVExtractor(t *testing.T) {
	got := extractText(t, &CSVExtractor{}, "name,age\nAlice,30\nBob,25\n")
	assert.Equal(t, "Headers: name, age\nname: Alice, age: 30\nname: Bob, age: 25", got)
}

func TestCSVExtractor_Batches(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 0; i < 45; i++ {
		fmt.Fprintf(&b, "%d,\"v\"%d\n", i, i) // lazy quotes
	}
	out, err := (&CSVExtractor{}).Extract(context.Background(), []byte(b.String()), "data.csv", nil)
	require.NoError(t, err)

	require.Len(t, out.Sections, 3)
	assert.Equal(t, "Rows 2-21", out.Sections[0].Title)
	assert.Equal(t, "Rows 42-46", out.Sections[2].Title)
	assert.Equal(t, 3, strings.Count(out.Text, "Headers: id, value"))
}

func TestDOCXExtractor(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().AddText("First paragraph of the report.")
	w.AddParagraph().AddText("Second paragraph.")
	var buf bytes.Buffer
	_, err := w.WriteTo(&buf)
	require.NoError(t, err)

	got := extractText(t, &DOCXExtractor{}, buf.String())
	assert.Equal(t, "First paragraph of the report.\n\nSecond paragraph.", got)
}

func TestDOCXExtractor_Corrupt(t *testing.T) {
	_, err := (&DOCXExtractor{}).Extract(context.Background(), []byte("not a zip archive"), "bad.docx", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, document.ErrExtractionFailed))
}

func buildZip(t *testing.T, files [][2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(f[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func chapter(title, body string) string {
	return `<?xml version="1.0" encoding="utf-8"?><html xmlns="http://www.w3.org/1999/xhtml"><body><h1>` +
		title + `</h1><p>` + body + `</p></body></html>`
}

func TestEPUBExtractor_SpineOrder(t *testing.T) {
	data := buildZip(t, [][2]string{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`},
		{"OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
    <item id="c2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="c1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine><itemref idref="c1"/><itemref idref="c2"/></spine>
</package>`},
		// Stored out of reading order on purpose.
		{"OEBPS/text/ch2.xhtml", chapter("Chapter Two", "Second chapter text.")},
		{"OEBPS/text/ch1.xhtml", chapter("Chapter One", "First chapter text.")},
	})

	out, err := (&EPUBExtractor{markdown: &MarkdownExtractor{}}).Extract(context.Background(), data, "book.epub", nil)
	require.NoError(t, err)

	assert.Equal(t, "spine", out.Method)
	assert.Equal(t, 2, out.Pages)
	first := strings.Index(out.Text, "First chapter text.")
	second := strings.Index(out.Text, "Second chapter text.")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
	assert.Equal(t, []document.Section{{Level: 1, Title: "Chapter One"}, {Level: 1, Title: "Chapter Two"}}, out.Sections)
}

func TestEPUBExtractor_ArchiveOrderWithoutOPF(t *testing.T) {
	data := buildZip(t, [][2]string{
		{"a.xhtml", chapter("Alpha", "Alpha text.")},
		{"notes.txt", "ignored"},
		{"b.html", chapter("Beta", "Beta text.")},
	})

	out, err := (&EPUBExtractor{markdown: &MarkdownExtractor{}}).Extract(context.Background(), data, "loose.epub", nil)
	require.NoError(t, err)

	assert.Equal(t, "archive-order", out.Method)
	assert.Less(t, strings.Index(out.Text, "Alpha text."), strings.Index(out.Text, "Beta text."))
	assert.NotContains(t, out.Text, "ignored")
}

func TestEPUBExtractor_NotAZip(t *testing.T) {
	_, err := (&EPUBExtractor{markdown: &MarkdownExtractor{}}).Extract(context.Background(), []byte("plain"), "x.epub", nil)
	assert.ErrorIs(t, err, document.ErrExtractionFailed)
}

// buildPalmDB writes a minimal uncompressed BOOKMOBI container.
func buildPalmDB(text string) []byte {
	const rec0Off, rec0Len = 96, 16
	out := make([]byte, rec0Off)
	copy(out[0:], "test-book")
	copy(out[60:], "BOOKMOBI")
	binary.BigEndian.PutUint16(out[76:], 2)
	binary.BigEndian.PutUint32(out[78:], rec0Off)
	binary.BigEndian.PutUint32(out[86:], rec0Off+rec0Len)

	rec0 := make([]byte, rec0Len)
	binary.BigEndian.PutUint16(rec0[0:], compressionNone)
	binary.BigEndian.PutUint32(rec0[4:], uint32(len(text)))
	binary.BigEndian.PutUint16(rec0[8:], 1)
	binary.BigEndian.PutUint16(rec0[10:], 4096)
	out = append(out, rec0...)
	return append(out, text...)
}

func TestEbookExtractor_PalmDoc(t *testing.T) {
	data := buildPalmDB("<html><body><h1>Title</h1><p>Hello ebook world</p></body></html>")

	out, err := (&EbookExtractor{}).Extract(context.Background(), data, "book.mobi", nil)
	require.NoError(t, err)

	assert.Equal(t, "palmdoc", out.Method)
	assert.Equal(t, "Title\n\nHello ebook world", out.Text)
}

func TestEbookExtractor_LossyFallback(t *testing.T) {
	data := []byte("\x00\x01\x02Readable words here\x00\x03ab\x00\x04More readable text\xff\xfe")

	out, err := (&EbookExtractor{}).Extract(context.Background(), data, "book.azw3", nil)
	require.NoError(t, err)

	assert.Equal(t, "lossy", out.Method)
	assert.Equal(t, "Readable words here More readable text", out.Text)
}

func TestPalmDocDecompress(t *testing.T) {
	// literal "abc", back-reference (distance 3, length 3), literal run "xy",
	// then a space+char pair.
	src := []byte{'a', 'b', 'c', 0x80, 0x18, 0x02, 'x', 'y', 0xC1}
	assert.Equal(t, "abcabcxy A", string(palmDocDecompress(src)))
}

func TestTrailingSize(t *testing.T) {
	rec := []byte("textdata\x02")
	// Bit 1: one trailing entry whose size is stored backwards in the last byte.
	assert.Equal(t, 2, trailingSize([]byte("text\x00\x82"), 0x2))
	assert.Equal(t, 0, trailingSize(rec, 0))
	// Bit 0: multibyte overlap, low two bits of the last byte plus one.
	assert.Equal(t, 3, trailingSize(rec, 0x1))
}

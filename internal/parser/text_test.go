package parser

import (
	"context"
	"testing"
)

func extractText(t *testing.T, e Extractor, input string) string {
	t.Helper()
	out, err := e.Extract(context.Background(), []byte(input), "input", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out.Text
}

func TestTextExtractor_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	got := extractText(t, &TextExtractor{}, input)

	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTextExtractor_EmptyInput(t *testing.T) {
	if got := extractText(t, &TextExtractor{}, ""); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestTextExtractor_MultipleBlankLines(t *testing.T) {
	// Multiple consecutive blank lines should not produce empty paragraphs.
	got := extractText(t, &TextExtractor{}, "Para one.\n\n\n\nPara two.")
	if got != "Para one.\n\nPara two." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestTextExtractor_WhitespaceOnlyLines(t *testing.T) {
	got := extractText(t, &TextExtractor{}, "Para one.\n   \nPara two.")
	if got != "Para one.\n\nPara two." {
		t.Errorf("unexpected text %q", got)
	}
}

func TestTextExtractor_RepairsEncodingAndLineEndings(t *testing.T) {
	input := "\xEF\xBB\xBFHello\r\nwide   \t world\rbad \xff byte"
	got := extractText(t, &TextExtractor{}, input)

	want := "Hello\nwide world\nbad � byte"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

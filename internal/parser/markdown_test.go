package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindgest/internal/document"
)

func TestMarkdownExtractor_HeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.

## Section B

Section B content.
`
	out, err := (&MarkdownExtractor{}).Extract(context.Background(), []byte(input), "doc.md", nil)
	require.NoError(t, err)

	assert.Equal(t, []document.Section{
		{Level: 1, Title: "Title"},
		{Level: 2, Title: "Section A"},
		{Level: 3, Title: "Subsection A1"},
		{Level: 2, Title: "Section B"},
	}, out.Sections)

	want := "Title\n\nIntro text.\n\nSection A\n\nSection A content.\n\nSubsection A1\n\nSubsection A1 content.\n\nSection B\n\nSection B content."
	assert.Equal(t, want, out.Text)
}

func TestMarkdownExtractor_InlineFormatting(t *testing.T) {
	input := "Some **bold** and _italic_ with a [link](https://example.com) and `code`.\n\n![diagram alt](img.png)\n"
	got := extractText(t, &MarkdownExtractor{}, input)

	assert.Equal(t, "Some bold and italic with a link and code.\n\ndiagram alt", got)
	assert.NotContains(t, got, "https://example.com")
}

func TestMarkdownExtractor_StripsInlineHTML(t *testing.T) {
	input := "Text with <span class=\"x\">inner</span> html and more.\n\n<div>\n<p>Block html</p>\n</div>\n"
	got := extractText(t, &MarkdownExtractor{}, input)

	assert.NotContains(t, got, "<")
	assert.Contains(t, got, "Text with inner html and more.")
	assert.Contains(t, got, "Block html")
}

func TestMarkdownExtractor_KeepsCodeBlocks(t *testing.T) {
	input := "Before.\n\n```go\nfmt.Println(\"hi\")\n```\n\nAfter.\n"
	got := extractText(t, &MarkdownExtractor{}, input)

	assert.Equal(t, "Before.\n\nfmt.Println(\"hi\")\n\nAfter.", got)
}

func TestMarkdownExtractor_Lists(t *testing.T) {
	input := "- first item\n- second item\n\n1. numbered\n"
	got := extractText(t, &MarkdownExtractor{}, input)

	for _, want := range []string{"first item", "second item", "numbered"} {
		assert.True(t, strings.Contains(got, want), "missing %q in %q", want, got)
	}
}

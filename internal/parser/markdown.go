package parser

import (
	"context"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"

	"github.com/dgallion1/mindgest/internal/document"
)

var strictPolicy = bluemonday.StrictPolicy()

// stripTags removes every HTML tag from s and decodes entities.
func stripTags(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// MarkdownExtractor handles Markdown files using goldmark.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(_ context.Context, data []byte, _ string, _ document.ProgressFunc) (*document.Extraction, error) {
	src := []byte(decodeText(data))
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var c collector
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			c.heading(node.Level, inlineText(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			c.paragraph(inlineText(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			c.paragraph(blockLines(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			c.paragraph(stripTags(blockLines(node, src)))
			return ast.WalkSkipChildren, nil
		case *ast.ThematicBreak:
			c.flush()
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &document.ExtractionError{Reason: "walk markdown", Err: err}
	}

	return &document.Extraction{Text: c.text(), Sections: c.sections}, nil
}

// inlineText flattens the inline children of n. Link text and image alt
// text survive; raw HTML is reduced to its text.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch node := c.(type) {
			case *ast.Text:
				buf.Write(node.Value(src))
				if node.HardLineBreak() {
					buf.WriteByte('\n')
				} else if node.SoftLineBreak() {
					buf.WriteByte(' ')
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.AutoLink:
				buf.Write(node.Label(src))
			case *ast.RawHTML:
				var raw strings.Builder
				for i := 0; i < node.Segments.Len(); i++ {
					seg := node.Segments.At(i)
					raw.Write(seg.Value(src))
				}
				buf.WriteString(stripTags(raw.String()))
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return buf.String()
}

func blockLines(n ast.Node, src []byte) string {
	var buf strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.String()
}

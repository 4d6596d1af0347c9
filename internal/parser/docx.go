package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/mindgest/internal/document"
)

// DOCXExtractor handles .docx files.
type DOCXExtractor struct{}

func (e *DOCXExtractor) Extract(_ context.Context, data []byte, _ string, _ document.ProgressFunc) (out *document.Extraction, err error) {
	// go-docx panics on some malformed archives.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &document.ExtractionError{Reason: "parse docx", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &document.ExtractionError{Reason: "parse docx", Err: err}
	}

	var c collector
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		if level := docxHeadingLevel(para); level > 0 {
			c.heading(level, text)
			continue
		}
		c.paragraph(text)
	}

	return &document.Extraction{Text: c.text(), Sections: c.sections}, nil
}

// docxHeadingLevel reads "Heading1" and "heading 1" style ids.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if rest, ok := strings.CutPrefix(style, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	if style == "title" {
		return 1
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/dgallion1/mindgest/internal/document"
)

// md leaves raw HTML out of the output, so model text cannot inject markup.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders res as a standalone HTML page.
func HTML(title string, res *document.AnalysisResult) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(title, res)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	if title == "" {
		title = "Document analysis"
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(title))
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

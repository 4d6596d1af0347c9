package parser

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/mindgest/internal/document"
)

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Head:     true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.Aside: true, atom.Nav: true, atom.Header: true,
	atom.Footer: true, atom.Blockquote: true, atom.Pre: true, atom.Ul: true,
	atom.Ol: true, atom.Li: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Table: true, atom.Tr: true, atom.Figure: true, atom.Figcaption: true,
	atom.Address: true, atom.Form: true, atom.Hr: true, atom.Body: true,
}

// HTMLExtractor handles HTML files.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(_ context.Context, data []byte, _ string, _ document.ProgressFunc) (*document.Extraction, error) {
	doc, err := html.Parse(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, &document.ExtractionError{Reason: "parse html", Err: err}
	}
	var c collector
	walkHTML(doc, &c)
	return &document.Extraction{Text: c.text(), Sections: c.sections}, nil
}

func walkHTML(n *html.Node, c *collector) {
	switch n.Type {
	case html.TextNode:
		c.write(strings.ReplaceAll(n.Data, "\n", " "))
		return
	case html.ElementNode:
		if skippedElements[n.DataAtom] {
			return
		}
		if level := headingLevel(n.Data); level > 0 {
			c.heading(level, nodeText(n))
			return
		}
		switch n.DataAtom {
		case atom.Br:
			c.write("\n")
			return
		case atom.Img:
			if alt := attr(n, "alt"); alt != "" {
				c.write(" " + alt + " ")
			}
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		c.flush()
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		walkHTML(ch, c)
	}
	if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
		c.write(" ")
	}
	if block {
		c.flush()
	}
}

// nodeText returns the visible text below n, including image alt text.
func nodeText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			buf.WriteString(n.Data)
		case n.Type == html.ElementNode && skippedElements[n.DataAtom]:
			return
		case n.Type == html.ElementNode && n.DataAtom == atom.Img:
			buf.WriteString(" " + attr(n, "alt") + " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return collapseSpace(buf.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

package parser

import (
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

// collector assembles paragraphs and headings into extraction text.
// Paragraphs are separated by a blank line; whitespace inside each line is
// collapsed and empty lines are dropped.
type collector struct {
	paras    []string
	cur      strings.Builder
	sections []document.Section
}

func (c *collector) write(s string) {
	c.cur.WriteString(s)
}

func (c *collector) flush() {
	if p := collapseLines(c.cur.String()); p != "" {
		c.paras = append(c.paras, p)
	}
	c.cur.Reset()
}

// paragraph adds p as its own paragraph.
func (c *collector) paragraph(p string) {
	c.flush()
	c.write(p)
	c.flush()
}

func (c *collector) heading(level int, title string) {
	c.flush()
	title = collapseSpace(title)
	if title == "" {
		return
	}
	c.paras = append(c.paras, title)
	c.sections = append(c.sections, document.Section{Level: level, Title: title})
}

func (c *collector) text() string {
	c.flush()
	return strings.Join(c.paras, "\n\n")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = collapseSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func headingLevel(tag string) int {
	if len(tag) == 2 && (tag[0] == 'h' || tag[0] == 'H') && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

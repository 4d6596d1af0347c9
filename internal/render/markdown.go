// Package render turns an analysis result into Markdown, Mermaid or HTML
// for export.
package render

import (
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

// Markdown renders res as a Markdown report headed by title.
func Markdown(title string, res *document.AnalysisResult) string {
	var sb strings.Builder
	if title = strings.TrimSpace(title); title == "" {
		title = "Document analysis"
	}
	sb.WriteString("# " + oneLine(title) + "\n\n")

	sb.WriteString("## Summary\n\n")
	sb.WriteString(strings.TrimSpace(res.Summary))
	sb.WriteString("\n\n")

	if len(res.KeyPoints) > 0 {
		sb.WriteString("## Key points\n\n")
		for _, kp := range res.KeyPoints {
			sb.WriteString("- " + oneLine(kp) + "\n")
		}
		sb.WriteString("\n")
	}

	if len(res.Outline) > 0 {
		sb.WriteString("## Outline\n\n")
		writeOutline(&sb, res.Outline, 0)
		sb.WriteString("\n")
	}

	if res.MindMapData.Label != "" {
		sb.WriteString("## Mind map\n\n```mermaid\n")
		sb.WriteString(Mermaid(res.MindMapData))
		sb.WriteString("```\n")
	}
	return sb.String()
}

func writeOutline(sb *strings.Builder, nodes []document.OutlineNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		sb.WriteString(indent + "- **" + oneLine(n.Title) + "**")
		if c := oneLine(n.Content); c != "" {
			sb.WriteString(": " + c)
		}
		sb.WriteString("\n")
		writeOutline(sb, n.Children, depth+1)
	}
}

// oneLine folds runs of whitespace, newlines included, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

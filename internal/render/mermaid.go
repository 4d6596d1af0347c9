package render

import (
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

// Mermaid renders a mind map as a Mermaid "mindmap" diagram. The root is
// drawn as a circle; every other node is plain text indented under its
// parent.
func Mermaid(root document.MindMapNode) string {
	var sb strings.Builder
	sb.WriteString("mindmap\n")
	sb.WriteString("  root((" + mermaidLabel(root.Label) + "))\n")
	writeMermaid(&sb, root.Children, 2)
	return sb.String()
}

func writeMermaid(sb *strings.Builder, nodes []document.MindMapNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		label := mermaidLabel(n.Label)
		if label == "" {
			continue
		}
		sb.WriteString(indent + label + "\n")
		writeMermaid(sb, n.Children, depth+1)
	}
}

// Shape delimiters would be read as node syntax.
var mermaidReplacer = strings.NewReplacer(
	"(", " ", ")", " ",
	"[", " ", "]", " ",
	"{", " ", "}", " ",
	"`", "'", "\"", "'",
)

func mermaidLabel(s string) string {
	return oneLine(mermaidReplacer.Replace(s))
}

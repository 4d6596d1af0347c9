package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindgest/internal/document"
)

func sample() *document.AnalysisResult {
	return &document.AnalysisResult{
		Summary:   "The report covers\nquarterly results.",
		KeyPoints: []string{"Revenue grew in every region", "Costs stayed flat"},
		Outline: []document.OutlineNode{{
			ID: "1", Title: "Results", Level: 1, Content: "Numbers by region",
			Children: []document.OutlineNode{{ID: "1.1", Title: "Europe", Level: 2}},
		}},
		MindMapData: document.MindMapNode{
			ID: "root", Label: "Quarterly (Q3) report",
			Children: []document.MindMapNode{
				{ID: "a", Label: "Revenue", Children: []document.MindMapNode{{ID: "a1", Label: "Growth [12%]"}}},
				{ID: "b", Label: "Costs"},
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown("Q3 report", sample())

	assert.True(t, strings.HasPrefix(out, "# Q3 report\n\n## Summary\n\nThe report covers\nquarterly results.\n\n"))
	assert.Contains(t, out, "## Key points\n\n- Revenue grew in every region\n- Costs stayed flat\n")
	assert.Contains(t, out, "- **Results**: Numbers by region\n  - **Europe**\n")
	assert.Contains(t, out, "```mermaid\nmindmap\n")
}

func TestMarkdown_EmptySections(t *testing.T) {
	out := Markdown("", &document.AnalysisResult{Summary: "Only a summary."})
	assert.Equal(t, "# Document analysis\n\n## Summary\n\nOnly a summary.\n\n", out)
}

func TestMermaid(t *testing.T) {
	want := "mindmap\n" +
		"  root((Quarterly Q3 report))\n" +
		"    Revenue\n" +
		"      Growth 12%\n" +
		"    Costs\n"
	assert.Equal(t, want, Mermaid(sample().MindMapData))
}

func TestMermaid_SkipsBlankLabels(t *testing.T) {
	root := document.MindMapNode{Label: "Doc", Children: []document.MindMapNode{{Label: "()"}, {Label: "Kept"}}}
	assert.Equal(t, "mindmap\n  root((Doc))\n    Kept\n", Mermaid(root))
}

func TestHTML(t *testing.T) {
	res := sample()
	res.Summary = "Uses <script>alert(1)</script> markup."
	out, err := HTML("A & B", res)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "<title>A &amp; B</title>")
	assert.Contains(t, s, "<h2>Key points</h2>")
	assert.Contains(t, s, "<li>Revenue grew in every region</li>")
	assert.Contains(t, s, `<code class="language-mermaid">`)
	assert.NotContains(t, s, "<script>")
}

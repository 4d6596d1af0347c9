package analyze

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dgallion1/mindgest/internal/ai"
	"github.com/dgallion1/mindgest/internal/document"
	"github.com/dgallion1/mindgest/internal/repair"
)

const (
	fallbackOutlineLines = 10
	outlineContentRunes  = 100
)

func (a *Analyzer) outline(ctx context.Context, text string, sections []document.Section) ([]document.OutlineNode, error) {
	raw, err := a.call(ctx, ai.NewRequest(document.TaskOutline, prefix(text, a.opts.OutlinePrefix)))
	if err != nil {
		return FallbackOutline(text, sections), err
	}

	var nodes []document.OutlineNode
	outcome, err := repair.Decode(raw, repair.ShapeArray, &nodes)
	if err != nil {
		a.log.Warn("outline response unusable, using fallback", "error", err, "cleaned_len", len(outcome.Cleaned))
		return FallbackOutline(text, sections), nil
	}
	if outcome.Step != "raw" {
		a.log.Debug("outline response repaired", "step", outcome.Step)
	}

	nodes = NormalizeOutline(nodes)
	if len(nodes) == 0 {
		return FallbackOutline(text, sections), nil
	}
	return nodes, nil
}

// NormalizeOutline drops untitled nodes (promoting their children), sets each
// level from its depth and makes every id unique.
func NormalizeOutline(nodes []document.OutlineNode) []document.OutlineNode {
	seen := map[string]bool{}
	return normalizeLevel(nodes, 1, seen)
}

func normalizeLevel(nodes []document.OutlineNode, level int, seen map[string]bool) []document.OutlineNode {
	var out []document.OutlineNode
	for _, n := range nodes {
		n.Title = strings.TrimSpace(n.Title)
		if n.Title == "" {
			out = append(out, normalizeLevel(n.Children, level, seen)...)
			continue
		}
		n.Level = level
		n.Content = strings.TrimSpace(n.Content)
		n.ID = strings.TrimSpace(n.ID)
		if n.ID == "" || seen[n.ID] {
			n.ID = newSectionID()
		}
		seen[n.ID] = true
		n.Children = normalizeLevel(n.Children, level+1, seen)
		out = append(out, n)
	}
	return out
}

func newSectionID() string {
	return "section-" + uuid.NewString()[:8]
}

// FallbackOutline builds an outline without the model. Extracted headings
// are nested by level; otherwise early lines of a plausible heading length
// become sections; otherwise the whole text is one node.
func FallbackOutline(text string, sections []document.Section) []document.OutlineNode {
	if len(sections) > 0 {
		nodes, _ := nestSections(sections, 0, 0, 1)
		return NormalizeOutline(nodes)
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}

	var out []document.OutlineNode
	for i := 0; i < min(len(lines), fallbackOutlineLines); i++ {
		n := len([]rune(lines[i]))
		if n <= 10 || n >= 100 {
			continue
		}
		node := document.OutlineNode{Title: lines[i], Level: 1}
		if i+1 < len(lines) {
			node.Content = prefix(lines[i+1], outlineContentRunes) + "..."
		}
		out = append(out, node)
	}
	if len(out) > 0 {
		return NormalizeOutline(out)
	}

	content := prefix(strings.TrimSpace(text), 200)
	if content != "" {
		content += "..."
	}
	return []document.OutlineNode{{ID: "1", Title: "Document content", Level: 1, Content: content}}
}

// nestSections consumes sections deeper than parentLevel starting at i and
// returns them as a tree rooted at depth.
func nestSections(sections []document.Section, i, parentLevel, depth int) ([]document.OutlineNode, int) {
	var out []document.OutlineNode
	for i < len(sections) && sections[i].Level > parentLevel {
		s := sections[i]
		node := document.OutlineNode{Title: s.Title, Level: depth}
		node.Children, i = nestSections(sections, i+1, s.Level, depth+1)
		out = append(out, node)
	}
	return out, i
}

// Package mindmap merges, bounds and synthesises mind map trees.
package mindmap

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/mindgest/internal/document"
)

const (
	// MaxBreadth is the most children any node keeps.
	MaxBreadth = 6
	// MaxDepth is the most levels kept below the root.
	MaxDepth = 3

	RootID           = "root"
	DefaultRootLabel = "Document mind map"
)

// Merge combines per-chunk mind maps into one tree. The root label comes
// from the first map that has children. Children sharing a normalised label
// are merged recursively, the first occurrence keeping its id and label.
// The result is clamped to MaxBreadth and MaxDepth.
func Merge(maps []document.MindMapNode) document.MindMapNode {
	var nonEmpty []document.MindMapNode
	for _, m := range maps {
		if len(m.Children) > 0 {
			nonEmpty = append(nonEmpty, m)
		}
	}

	root := document.MindMapNode{ID: RootID, Label: DefaultRootLabel}
	if len(nonEmpty) == 0 {
		return root
	}
	if label := strings.TrimSpace(nonEmpty[0].Label); label != "" {
		root.Label = label
	}
	for _, m := range nonEmpty {
		root.Children = mergeChildren(root.Children, m.Children)
	}

	root = Clamp(root, MaxBreadth, MaxDepth)
	fillIDs(&root, map[string]bool{RootID: true})
	root.ID = RootID
	return root
}

func mergeChildren(into, incoming []document.MindMapNode) []document.MindMapNode {
	index := make(map[string]int, len(into))
	for i, n := range into {
		index[Normalize(n.Label)] = i
	}
	for _, n := range incoming {
		key := Normalize(n.Label)
		if key == "" {
			continue
		}
		if i, ok := index[key]; ok {
			into[i].Children = mergeChildren(into[i].Children, n.Children)
			continue
		}
		fresh := document.MindMapNode{ID: n.ID, Label: strings.TrimSpace(n.Label)}
		fresh.Children = mergeChildren(nil, n.Children)
		index[key] = len(into)
		into = append(into, fresh)
	}
	return into
}

// Clamp returns a copy of n keeping at most breadth children per node and
// at most depth levels below n.
func Clamp(n document.MindMapNode, breadth, depth int) document.MindMapNode {
	out := document.MindMapNode{ID: n.ID, Label: n.Label}
	if depth <= 0 || len(n.Children) == 0 {
		return out
	}
	kids := n.Children
	if len(kids) > breadth {
		kids = kids[:breadth]
	}
	out.Children = make([]document.MindMapNode, len(kids))
	for i, c := range kids {
		out.Children[i] = Clamp(c, breadth, depth-1)
	}
	return out
}

// Normalize folds a label for comparison: NFC, collapsed whitespace,
// trimmed, lower case.
func Normalize(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFC.String(label)), " "))
}

// Finalize clamps a single model-produced map and gives every node a unique
// id, the root always being "root".
func Finalize(n document.MindMapNode) document.MindMapNode {
	n = Clamp(n, MaxBreadth, MaxDepth)
	if strings.TrimSpace(n.Label) == "" {
		n.Label = DefaultRootLabel
	}
	fillIDs(&n, map[string]bool{RootID: true})
	n.ID = RootID
	return n
}

func fillIDs(n *document.MindMapNode, seen map[string]bool) {
	for i := range n.Children {
		c := &n.Children[i]
		if c.ID == "" || seen[c.ID] {
			c.ID = NewID()
		}
		seen[c.ID] = true
		fillIDs(c, seen)
	}
}

// NewID returns a short random node id.
func NewID() string {
	return "node_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Fallback builds a mind map from raw text when no model output is usable.
// The first line becomes the root and following lines become branches.
func Fallback(text string) document.MindMapNode {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || r == '#' || r == '*' || r == '-'
		})
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return skeleton()
	}

	root := document.MindMapNode{ID: RootID, Label: clip(lines[0], 60)}
	for _, line := range lines[1:] {
		if len(root.Children) == MaxBreadth {
			break
		}
		n := len([]rune(line))
		if n < 3 || n > 120 {
			continue
		}
		root.Children = append(root.Children, document.MindMapNode{
			ID:    NewID(),
			Label: clip(line, 40),
		})
	}
	if len(root.Children) == 0 {
		return skeleton()
	}
	return root
}

func skeleton() document.MindMapNode {
	return document.MindMapNode{
		ID:    RootID,
		Label: "Document analysis",
		Children: []document.MindMapNode{
			{ID: "content", Label: "Main content", Children: []document.MindMapNode{
				{ID: "point1", Label: "Point 1"},
				{ID: "point2", Label: "Point 2"},
			}},
			{ID: "structure", Label: "Document structure", Children: []document.MindMapNode{
				{ID: "intro", Label: "Introduction"},
				{ID: "main", Label: "Body"},
				{ID: "conclusion", Label: "Conclusion"},
			}},
		},
	}
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

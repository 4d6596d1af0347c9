package pipeline

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dgallion1/mindgest/internal/document"
)

// ResultCache keeps recent analysis results keyed by the content hash of
// the extracted text. Entries are copied in and out so callers own what
// they get. A nil cache stores nothing.
type ResultCache struct {
	lru *lru.Cache[string, *document.AnalysisResult]
}

// NewResultCache returns a cache of the given size, or nil when size <= 0.
func NewResultCache(size int) (*ResultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, *document.AnalysisResult](size)
	if err != nil {
		return nil, err
	}
	return &ResultCache{lru: c}, nil
}

func (c *ResultCache) Get(hash string) (*document.AnalysisResult, bool) {
	if c == nil {
		return nil, false
	}
	res, ok := c.lru.Get(hash)
	if !ok {
		return nil, false
	}
	return cloneResult(res), true
}

func (c *ResultCache) Add(hash string, res *document.AnalysisResult) {
	if c == nil || res == nil {
		return
	}
	c.lru.Add(hash, cloneResult(res))
}

func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cloneResult(r *document.AnalysisResult) *document.AnalysisResult {
	out := &document.AnalysisResult{
		Summary:     r.Summary,
		KeyPoints:   append([]string{}, r.KeyPoints...),
		Outline:     cloneOutline(r.Outline),
		MindMapData: cloneMindMap(r.MindMapData),
	}
	return out
}

func cloneOutline(nodes []document.OutlineNode) []document.OutlineNode {
	if nodes == nil {
		return nil
	}
	out := make([]document.OutlineNode, len(nodes))
	for i, n := range nodes {
		out[i] = n
		out[i].Children = cloneOutline(n.Children)
	}
	return out
}

func cloneMindMap(n document.MindMapNode) document.MindMapNode {
	out := document.MindMapNode{ID: n.ID, Label: n.Label}
	if n.Children != nil {
		out.Children = make([]document.MindMapNode, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = cloneMindMap(c)
		}
	}
	return out
}

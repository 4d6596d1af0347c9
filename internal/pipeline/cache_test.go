package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindgest/internal/document"
)

func sampleResult() *document.AnalysisResult {
	return &document.AnalysisResult{
		Summary:   "A summary.",
		KeyPoints: []string{"first point here", "second point here"},
		Outline: []document.OutlineNode{{
			ID: "1", Title: "Intro", Level: 1,
			Children: []document.OutlineNode{{ID: "1.1", Title: "Scope", Level: 2}},
		}},
		MindMapData: document.MindMapNode{
			ID: "root", Label: "Doc",
			Children: []document.MindMapNode{{ID: "a", Label: "A"}},
		},
	}
}

func TestResultCache_GetAdd(t *testing.T) {
	c, err := NewResultCache(2)
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Add("h1", sampleResult())
	got, ok := c.Get("h1")
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)
	assert.Equal(t, 1, c.Len())
}

func TestResultCache_EntriesAreIsolated(t *testing.T) {
	c, err := NewResultCache(2)
	require.NoError(t, err)

	res := sampleResult()
	c.Add("h1", res)
	res.Outline[0].Children[0].Title = "changed by caller"

	got, _ := c.Get("h1")
	assert.Equal(t, "Scope", got.Outline[0].Children[0].Title)

	got.MindMapData.Children[0].Label = "changed again"
	again, _ := c.Get("h1")
	assert.Equal(t, "A", again.MindMapData.Children[0].Label)
}

func TestResultCache_Evicts(t *testing.T) {
	c, err := NewResultCache(1)
	require.NoError(t, err)
	c.Add("h1", sampleResult())
	c.Add("h2", sampleResult())

	_, ok := c.Get("h1")
	assert.False(t, ok)
	_, ok = c.Get("h2")
	assert.True(t, ok)
}

func TestResultCache_Disabled(t *testing.T) {
	c, err := NewResultCache(0)
	require.NoError(t, err)
	assert.Nil(t, c)

	c.Add("h1", sampleResult())
	_, ok := c.Get("h1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

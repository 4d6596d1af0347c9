package analyze

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/mindgest/internal/document"
)

func TestFallbackOutline_FromSections(t *testing.T) {
	sections := []document.Section{
		{Level: 2, Title: "Preface"},
		{Level: 1, Title: "Part One"},
		{Level: 2, Title: "Chapter 1"},
		{Level: 3, Title: "Section 1.1"},
		{Level: 2, Title: "Chapter 2"},
		{Level: 1, Title: "Part Two"},
	}

	got := FallbackOutline("ignored", sections)

	require.Len(t, got, 3)
	assert.Equal(t, "Preface", got[0].Title)
	assert.Equal(t, "Part One", got[1].Title)
	require.Len(t, got[1].Children, 2)
	assert.Equal(t, 2, got[1].Children[0].Level)
	require.Len(t, got[1].Children[0].Children, 1)
	assert.Equal(t, "Section 1.1", got[1].Children[0].Children[0].Title)
	assert.Equal(t, 3, got[1].Children[0].Children[0].Level)
	assert.Equal(t, "Part Two", got[2].Title)
}

func TestFallbackOutline_FromLines(t *testing.T) {
	text := "Short\nIntroduction to the system\n" + strings.Repeat("x", 150) + "\nArchitecture overview here\nfinal"

	got := FallbackOutline(text, nil)

	require.Len(t, got, 2)
	assert.Equal(t, "Introduction to the system", got[0].Title)
	assert.Equal(t, strings.Repeat("x", 100)+"...", got[0].Content)
	assert.Equal(t, "Architecture overview here", got[1].Title)
	assert.Equal(t, "final...", got[1].Content)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestFallbackOutline_SingleNode(t *testing.T) {
	got := FallbackOutline("tiny", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "Document content", got[0].Title)
	assert.Equal(t, "tiny...", got[0].Content)
}

func TestNormalizeOutline(t *testing.T) {
	in := []document.OutlineNode{
		{ID: "a", Title: " First ", Level: 4},
		{ID: "a", Title: "Second", Children: []document.OutlineNode{
			{Title: "", Children: []document.OutlineNode{{ID: "deep", Title: "Promoted"}}},
		}},
	}

	got := NormalizeOutline(in)

	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Title)
	assert.Equal(t, 1, got[0].Level)
	assert.Equal(t, "a", got[0].ID)
	assert.NotEqual(t, "a", got[1].ID)
	require.Len(t, got[1].Children, 1)
	assert.Equal(t, "Promoted", got[1].Children[0].Title)
	assert.Equal(t, 2, got[1].Children[0].Level)
}

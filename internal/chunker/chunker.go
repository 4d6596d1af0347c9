package chunker

import (
	"github.com/dgallion1/mindgest/internal/document"
)

// DefaultMaxLen is the chunk length used for long-document summaries.
const DefaultMaxLen = 6000

// backoffRatio is how far into a window a newline must sit before the
// window is shortened to end on it.
const backoffRatio = 0.6

// Split cuts text into ordered chunks of at most maxLen runes. Concatenating
// the chunk texts reproduces text exactly.
//
// A window that ends before the end of the text is shortened to end just
// after its last newline, as long as that newline lies more than 60% of
// maxLen into the window.
func Split(text string, maxLen int) []document.Chunk {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []document.Chunk{{Index: 0, Total: 1, Text: text}}
	}

	minBreak := int(float64(maxLen) * backoffRatio)
	var parts []string
	start := 0
	for start < len(runes) {
		end := start + maxLen
		if end >= len(runes) {
			end = len(runes)
		} else if nl := lastNewline(runes, start, end); nl >= 0 && nl-start > minBreak {
			end = nl + 1
		}
		parts = append(parts, string(runes[start:end]))
		start = end
	}

	chunks := make([]document.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = document.Chunk{Index: i, Total: len(parts), Text: p}
	}
	return chunks
}

// lastNewline returns the index of the last '\n' in runes[start:end], or -1.
func lastNewline(runes []rune, start, end int) int {
	for i := end - 1; i >= start; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

// Join reassembles chunk texts in index order.
func Join(chunks []document.Chunk) string {
	ordered := make([]string, len(chunks))
	for _, c := range chunks {
		if c.Index >= 0 && c.Index < len(ordered) {
			ordered[c.Index] = c.Text
		}
	}
	n := 0
	for _, s := range ordered {
		n += len(s)
	}
	buf := make([]byte, 0, n)
	for _, s := range ordered {
		buf = append(buf, s...)
	}
	return string(buf)
}

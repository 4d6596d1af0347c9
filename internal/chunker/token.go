package chunker

import (
	"strings"
	"unicode"
)

// EstimateTokens gives a rough token count for logging and budgeting.
// Latin words count ~1.33 tokens each; CJK characters count one each.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			cjk++
		}
	}
	words := len(strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.Is(unicode.Han, r)
	}))
	tokens := int(float64(words)*1.33) + cjk
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

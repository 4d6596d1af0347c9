package ai

import "regexp"

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

// LooksLikeInjection reports whether model output echoes instructions aimed
// at the model rather than content about the document.
func LooksLikeInjection(s string) bool {
	return injectionPattern.MatchString(s)
}

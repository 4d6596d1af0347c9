package ai

import (
	"regexp"
	"strings"
)

// AggressiveLimit is the rune cap applied by the aggressive sanitiser.
const AggressiveLimit = 3500

const redacted = "[removed]"

// DefaultSanitizeTerms are flagged by moderation often enough that they are
// masked before every prompt.
var DefaultSanitizeTerms = []string{
	"sexual intercourse", "rape", "pornography", "porn",
	"nude photo", "nudity", "masturbation", "genitals",
}

// Sanitizer masks or drops flagged terms before text is sent upstream.
type Sanitizer struct {
	re *regexp.Regexp
}

// NewSanitizer builds a sanitiser for the default terms plus extra.
func NewSanitizer(extra []string) *Sanitizer {
	terms := make([]string, 0, len(DefaultSanitizeTerms)+len(extra))
	for _, t := range append(append([]string{}, DefaultSanitizeTerms...), extra...) {
		if t = strings.TrimSpace(t); t != "" {
			terms = append(terms, regexp.QuoteMeta(t))
		}
	}
	if len(terms) == 0 {
		return &Sanitizer{}
	}
	return &Sanitizer{re: regexp.MustCompile(`(?i)(` + strings.Join(terms, "|") + `)`)}
}

// Basic replaces every flagged term with a placeholder.
func (s *Sanitizer) Basic(text string) string {
	if s == nil || s.re == nil || text == "" {
		return text
	}
	return s.re.ReplaceAllString(text, redacted)
}

// Aggressive drops every line containing a flagged term, removes blank
// lines and caps the result at AggressiveLimit runes.
func (s *Sanitizer) Aggressive(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if s != nil && s.re != nil && s.re.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	out := []rune(strings.Join(kept, "\n"))
	if len(out) > AggressiveLimit {
		out = out[:AggressiveLimit]
	}
	return string(out)
}

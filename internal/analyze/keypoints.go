package analyze

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/dgallion1/mindgest/internal/ai"
	"github.com/dgallion1/mindgest/internal/document"
)

const (
	// MaxKeyPoints caps the parsed list.
	MaxKeyPoints = 10
	// minKeyPointRunes drops fragments too short to be a point.
	minKeyPointRunes = 10
	// duplicateSimilarity is the levenshtein ratio above which two points
	// count as the same.
	duplicateSimilarity = 0.85
)

var listMarker = regexp.MustCompile(`^(?:[-*+•·–—]|\d{1,2}[.)、:])\s*`)

var preambles = []string{"here are", "here is", "以下是"}

// leadIns open a list when they head a short line, but also start real
// points such as "In summary, revenue grew 12%".
var leadIns = []string{"the following", "key points", "key takeaways", "in summary", "关键要点"}

// maxLeadInWords is the longest line a lead-in phrase still counts as
// preamble on.
const maxLeadInWords = 6

func (a *Analyzer) keyPoints(ctx context.Context, text string) ([]string, error) {
	raw, err := a.call(ctx, ai.NewRequest(document.TaskKeyPoints, text))
	if err != nil {
		return []string{}, err
	}
	points := ParseKeyPoints(raw)
	a.log.Debug("key points parsed", "count", len(points), "raw_len", len(raw))
	return points, nil
}

// ParseKeyPoints turns a model's bulleted answer into a clean list: headers
// and preamble are dropped, bullets and emoji prefixes stripped, short or
// instruction-like lines removed and near-duplicates collapsed. The result is
// never nil and holds at most MaxKeyPoints entries.
func ParseKeyPoints(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isPreamble(line) {
			continue
		}
		line = stripListPrefix(line)
		if utf8.RuneCountInString(line) <= minKeyPointRunes {
			continue
		}
		if ai.LooksLikeInjection(line) || isNearDuplicate(line, out) {
			continue
		}
		out = append(out, line)
		if len(out) == MaxKeyPoints {
			break
		}
	}
	return out
}

func isPreamble(line string) bool {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "---") || strings.HasPrefix(line, "```") {
		return true
	}
	lower := strings.ToLower(strings.Trim(line, "*_ "))
	for _, p := range preambles {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, p := range leadIns {
		if strings.HasPrefix(lower, p) &&
			(strings.HasSuffix(lower, ":") || len(strings.Fields(lower)) <= maxLeadInWords) {
			return true
		}
	}
	// A short line ending in a colon introduces the list.
	return strings.HasSuffix(lower, ":") && utf8.RuneCountInString(lower) < 40
}

// stripListPrefix removes bullets, numbering, emoji and bold markers from
// the start of a line.
func stripListPrefix(line string) string {
	for {
		before := line
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.Is(unicode.So, r) || r == '\uFE0F' || r == '\u200D'
		})
		line = listMarker.ReplaceAllString(line, "")
		if line == before {
			break
		}
	}
	if strings.HasPrefix(line, "**") {
		line = strings.Replace(strings.TrimPrefix(line, "**"), "**", "", 1)
	}
	return strings.TrimSpace(line)
}

func isNearDuplicate(line string, kept []string) bool {
	a := strings.ToLower(line)
	la := utf8.RuneCountInString(a)
	for _, k := range kept {
		b := strings.ToLower(k)
		longest := max(la, utf8.RuneCountInString(b))
		if longest == 0 {
			return true
		}
		ratio := 1 - float64(levenshtein.Distance(a, b, nil))/float64(longest)
		if ratio >= duplicateSimilarity {
			return true
		}
	}
	return false
}

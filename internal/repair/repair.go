// Package repair decodes JSON produced by language models, which is often
// wrapped in prose, fenced, commented, truncated or loosely quoted.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

// Shape is the top-level JSON value a caller expects.
type Shape int

const (
	ShapeObject Shape = iota
	ShapeArray
)

func (s Shape) String() string {
	if s == ShapeArray {
		return "array"
	}
	return "object"
}

func (s Shape) brackets() (open, close byte) {
	if s == ShapeArray {
		return '[', ']'
	}
	return '{', '}'
}

// Outcome reports how Decode got to its result.
type Outcome struct {
	// Step names the ladder step after which the text parsed ("raw" when
	// the input was already valid).
	Step string
	// Cleaned is the last candidate text tried.
	Cleaned string
}

// Step is one transformation on the repair ladder.
type Step struct {
	Name  string
	Apply func(s string, shape Shape) string
}

// Ladder is applied in order, each step working on the previous step's
// output. A parse is attempted after every step.
var Ladder = []Step{
	{Name: "isolate", Apply: isolate},
	{Name: "clean", Apply: func(s string, _ Shape) string { return clean(s) }},
	{Name: "closeTruncated", Apply: func(s string, _ Shape) string { return closeTruncated(s) }},
	{Name: "quoteBare", Apply: func(s string, _ Shape) string { return quoteBare(s) }},
	{Name: "escapeInnerQuotes", Apply: func(s string, _ Shape) string { return escapeInnerQuotes(s) }},
	{Name: "closeTruncatedFinal", Apply: func(s string, _ Shape) string { return closeTruncated(s) }},
}

// Decode parses raw into v, repairing it step by step when it is not valid
// JSON. It never panics. When every step fails the error wraps
// document.ErrJSONRepairExhausted and Outcome.Cleaned holds the best
// cleaned candidate.
func Decode(raw string, shape Shape, v any) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during repair: %v", document.ErrJSONRepairExhausted, r)
		}
	}()

	candidate := raw
	lastErr := tryParse(candidate, v)
	if lastErr == nil {
		return Outcome{Step: "raw", Cleaned: candidate}, nil
	}

	for _, step := range Ladder {
		next := step.Apply(candidate, shape)
		candidate = next
		if lastErr = tryParse(candidate, v); lastErr == nil {
			return Outcome{Step: step.Name, Cleaned: candidate}, nil
		}
	}
	return Outcome{Cleaned: candidate}, fmt.Errorf("%w: %v", document.ErrJSONRepairExhausted, lastErr)
}

func tryParse(s string, v any) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("empty input")
	}
	if !json.Valid([]byte(s)) {
		var scratch any
		return json.Unmarshal([]byte(s), &scratch)
	}
	return json.Unmarshal([]byte(s), v)
}

// isolate keeps the span from the first opening bracket of the expected
// shape to the last closing one, provided that span is balanced. Otherwise
// the closer belongs to an unfinished value and the rest of the text is
// kept so truncation repair sees every complete element.
func isolate(s string, shape Shape) string {
	open, closer := shape.brackets()
	start := strings.IndexByte(s, open)
	if start < 0 {
		return s
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	span := s[start : end+1]
	if stack, inString := openBrackets(span); len(stack) > 0 || inString {
		return s[start:]
	}
	return span
}

// clean strips fences and comments, drops trailing commas, collapses blank
// lines and turns single-quoted strings into double-quoted ones. Raw control
// characters inside strings are escaped.
func clean(s string) string {
	s = stripFences(s)

	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(c)
			case c == '\\':
				escaped = true
				b.WriteByte(c)
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
			case c == '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(c)
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			i--
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += 2 + end + 1
			}
		case c == '\'':
			i = copySingleQuoted(&b, s, i)
		case c == ',':
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			b.WriteByte(c)
		case c == '\r':
		case c == '\n':
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			b.WriteByte('\n')
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// copySingleQuoted writes the single-quoted string starting at s[i] as a
// double-quoted JSON string and returns the index of its closing quote.
func copySingleQuoted(b *strings.Builder, s string, i int) int {
	b.WriteByte('"')
	j := i + 1
	for ; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '\\' && j+1 < len(s) && s[j+1] == '\'':
			b.WriteByte('\'')
			j++
		case c == '\\' && j+1 < len(s):
			b.WriteByte(c)
			b.WriteByte(s[j+1])
			j++
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\'':
			b.WriteByte('"')
			return j
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return j
}

func stripFences(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// closeTruncated repairs text that was cut off or broken part way. Text
// that ends early is cut back to the last complete value; a syntax error
// inside the text cuts back to the last complete } or ] before the error
// offset. Still-open brackets are then closed in stack order. The result is
// kept only if it parses.
func closeTruncated(s string) string {
	trimmed := strings.TrimSpace(s)
	var scratch any
	err := json.Unmarshal([]byte(trimmed), &scratch)
	if err == nil {
		return s
	}
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return s
	}

	var candidates []string
	if int(syn.Offset) >= len(trimmed) {
		head := trimmed
		candidates = append(candidates, strings.TrimRight(head, ",:"))
		if cut := strings.LastIndexAny(head, "}]"); cut >= 0 {
			candidates = append(candidates, head[:cut+1])
		}
		if cut := strings.LastIndexByte(head, ','); cut >= 0 {
			candidates = append(candidates, head[:cut])
		}
	} else {
		// Offset counts the offending byte.
		head := trimmed[:max(int(syn.Offset)-1, 0)]
		if cut := strings.LastIndexAny(head, "}]"); cut >= 0 {
			candidates = append(candidates, head[:cut+1])
		}
	}

	for _, c := range candidates {
		if fixed, ok := balance(c); ok {
			return fixed
		}
	}
	return s
}

// balance closes the brackets left open in c and reports whether the
// result is valid JSON.
func balance(c string) (string, bool) {
	stack, inString := openBrackets(c)
	if inString {
		return "", false
	}
	fixed := strings.TrimRight(c, " \t\r\n,")
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			fixed += "}"
		} else {
			fixed += "]"
		}
	}
	return fixed, json.Valid([]byte(fixed))
}

// openBrackets returns the brackets left open at the end of s and whether
// s ends inside a string.
func openBrackets(s string) ([]byte, bool) {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack, inString
}

// quoteBare quotes bare object keys and bare scalar values. Literals and
// numbers are left alone.
func quoteBare(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	var stack []byte
	expectKey := false
	afterString := false
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				afterString = true
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '{' || c == '[':
			stack = append(stack, c)
			expectKey = c == '{'
			afterString = false
			b.WriteByte(c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			expectKey = false
			afterString = false
			b.WriteByte(c)
		case c == ',':
			expectKey = len(stack) > 0 && stack[len(stack)-1] == '{'
			afterString = false
			b.WriteByte(c)
		case c == ':':
			expectKey = false
			afterString = false
			b.WriteByte(c)
		case isSpace(c):
			b.WriteByte(c)
		case afterString || len(stack) == 0:
			// Text glued to a string is an unescaped inner quote, and text
			// outside any container is prose. Neither is a bare token.
			b.WriteByte(c)
		default:
			stops := ",}]\n\""
			if expectKey {
				stops = ":,}]\n\""
			}
			j := i
			for j < len(s) && !strings.ContainsRune(stops, rune(s[j])) {
				j++
			}
			token := strings.TrimSpace(s[i:j])
			trailing := s[i+len(strings.TrimRight(s[i:j], " \t\r")) : j]
			if expectKey || !isLiteral(token) {
				b.WriteString(quote(token))
			} else {
				b.WriteString(token)
			}
			b.WriteString(trailing)
			i = j - 1
		}
	}
	return b.String()
}

func isLiteral(token string) bool {
	switch token {
	case "true", "false", "null":
		return true
	}
	var n json.Number
	return json.Unmarshal([]byte(token), &n) == nil
}

func quote(token string) string {
	b, _ := json.Marshal(token)
	return string(b)
}

// escapeInnerQuotes escapes double quotes that sit inside a string. A quote
// closes the string only when the next non-space character is one of
// , } ] : or the end of input.
func escapeInnerQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			if closesString(s, i+1) {
				inString = false
				b.WriteByte(c)
			} else {
				b.WriteString(`\"`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func closesString(s string, from int) bool {
	for j := from; j < len(s); j++ {
		if isSpace(s[j]) {
			continue
		}
		switch s[j] {
		case ',', '}', ']', ':':
			return true
		}
		return false
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/text/encoding/charmap"
)

// pageSource is the structured view of a PDF used for text methods (a) and
// (b) plus the outline.
type pageSource interface {
	NumPage() int
	PlainText(page int) (string, error)
	RunsText(page int) (string, error)
	OutlineTitles() []string
}

// streamSource scans raw content streams for text operators.
type streamSource interface {
	PageText(page int) (string, error)
}

type ledongthucSource struct {
	r *pdflib.Reader
}

func openLedongthuc(data []byte) (src pageSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("open pdf: panic: %v", r)
		}
	}()
	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &ledongthucSource{r: r}, nil
}

func (s *ledongthucSource) NumPage() int { return s.r.NumPage() }

func (s *ledongthucSource) PlainText(page int) (string, error) {
	p := s.r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// RunsText joins the unmerged text runs of a page with spaces.
func (s *ledongthucSource) RunsText(page int) (string, error) {
	p := s.r.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	var parts []string
	for _, t := range p.Content().Text {
		if t.S != "" {
			parts = append(parts, t.S)
		}
	}
	return strings.Join(parts, " "), nil
}

func (s *ledongthucSource) OutlineTitles() (titles []string) {
	defer func() {
		if recover() != nil {
			titles = nil
		}
	}()
	for _, o := range s.r.Outline().Child {
		if t := strings.TrimSpace(o.Title); t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}

type pdfcpuSource struct {
	ctx *model.Context
}

func openPDFCPU(data []byte) (streamSource, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return &pdfcpuSource{ctx: ctx}, nil
}

func (s *pdfcpuSource) PageText(page int) (string, error) {
	if page < 1 || page > s.ctx.PageCount {
		return "", fmt.Errorf("page %d out of range", page)
	}
	r, err := pdfcpu.ExtractPageContent(s.ctx, page)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return textFromContentStream(data), nil
}

// textFromContentStream picks the string operands of Tj, TJ, ' and "
// operators out of a decoded content stream.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, lit := range literalStrings(line) {
				sb.WriteString(decodePDFString(lit))
			}
		case (bytes.HasSuffix(line, []byte("'")) || bytes.HasSuffix(line, []byte(`"`))) && bytes.Contains(line, []byte("(")):
			for _, lit := range literalStrings(line) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(lit))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}
	return cleanPDFText(sb.String())
}

// literalStrings returns the bodies of the literal strings on a content
// stream line. Parentheses nest and a backslash escapes the next byte.
func literalStrings(line []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(line); i++ {
		if line[i] != '(' {
			continue
		}
		start, depth := i+1, 1
		for i++; i < len(line) && depth > 0; i++ {
			switch line[i] {
			case '\\':
				i++
			case '(':
				depth++
			case ')':
				depth--
			}
		}
		if depth > 0 {
			break
		}
		// i sits one past the closing parenthesis.
		out = append(out, line[start:i-1])
		i--
	}
	return out
}

// decodePDFString resolves the escape sequences of a PDF literal string.
// Bytes that do not form UTF-8 are read as Windows-1252.
func decodePDFString(raw []byte) string {
	var sb bytes.Buffer
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Up to three octal digits.
			val := int(raw[i] - '0')
			for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	if utf8.Valid(sb.Bytes()) {
		return sb.String()
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(sb.Bytes())
	if err != nil {
		return sb.String()
	}
	return string(decoded)
}

// cleanPDFText collapses whitespace and drops unprintable runes.
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToValidUTF8(text, "") {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}

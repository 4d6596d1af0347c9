package parser

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextExtractor handles plain text files.
type TextExtractor struct{}

func (e *TextExtractor) Extract(_ context.Context, data []byte, _ string, _ document.ProgressFunc) (*document.Extraction, error) {
	text := decodeText(data)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var c collector
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			c.flush()
			continue
		}
		c.write(line)
		c.write("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, &document.ExtractionError{Reason: "read text", Err: err}
	}

	return &document.Extraction{Text: c.text()}, nil
}

// decodeText strips a UTF-8 BOM, replaces invalid bytes and normalises line
// endings to \n.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	s := strings.ToValidUTF8(string(data), "�")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

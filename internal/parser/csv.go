package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

const csvBatchSize = 20

// CSVExtractor renders rows as "header: value" lines, grouped in batches
// that each repeat the header list.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(_ context.Context, data []byte, _ string, _ document.ProgressFunc) (*document.Extraction, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &document.ExtractionError{Reason: "parse csv", Err: err}
	}
	if len(records) == 0 {
		return &document.Extraction{}, nil
	}

	headers := records[0]
	dataRows := records[1:]
	if len(dataRows) == 0 {
		return &document.Extraction{Text: "Headers: " + strings.Join(headers, ", ")}, nil
	}

	var batches []string
	var sections []document.Section
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n")
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}
		batches = append(batches, strings.TrimSpace(text.String()))
		// 1-indexed, skipping the header row.
		sections = append(sections, document.Section{Level: 1, Title: fmt.Sprintf("Rows %d-%d", i+2, end+1)})
	}

	return &document.Extraction{Text: strings.Join(batches, "\n\n"), Sections: sections}, nil
}

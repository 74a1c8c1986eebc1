package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/archindex/internal/doctree"
)

// csvBatch is the number of data rows per tree node.
const csvBatch = 20

// CSVParser handles CSV exports such as archive inventories. The first row
// is the header; each data row is rendered as "header: value" pairs.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: titleFromName(filename)}
	if len(records) == 0 {
		return tree, nil
	}

	header, rows := records[0], records[1:]
	for start := 0; start < len(rows); start += csvBatch {
		end := min(start+csvBatch, len(rows))
		lines := make([]string, 0, end-start)
		for _, row := range rows[start:end] {
			lines = append(lines, csvRow(header, row))
		}
		tree.Children = append(tree.Children, &doctree.DocNode{Text: strings.Join(lines, "\n")})
	}

	return tree, nil
}

func csvRow(header, row []string) string {
	cells := make([]string, 0, len(row))
	for i, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if i < len(header) && header[i] != "" {
			cell = header[i] + ": " + cell
		}
		cells = append(cells, cell)
	}
	return strings.Join(cells, "; ")
}

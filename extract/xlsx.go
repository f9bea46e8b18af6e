package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor reads spreadsheets, one sheet per page, rows joined with
// pipes so tabular policies stay readable as text.
type XLSXExtractor struct{}

func (e *XLSXExtractor) SupportedFormats() []string { return []string{"xlsx", "xls"} }

func (e *XLSXExtractor) Extract(path string) ([]Page, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var pages []Page
	for i, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		var content strings.Builder
		content.WriteString(sheet + "\n")
		for _, row := range rows {
			content.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		pages = append(pages, Page{Page: i + 1, Text: content.String()})
	}
	return pages, nil
}

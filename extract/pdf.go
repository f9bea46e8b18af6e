package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads PDFs page by page with plain-text extraction.
type PDFExtractor struct{}

func (e *PDFExtractor) SupportedFormats() []string { return []string{"pdf"} }

func (e *PDFExtractor) Extract(path string) ([]Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract.
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Page: i, Text: text})
	}
	return pages, nil
}

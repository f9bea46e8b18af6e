package extract

import (
	"fmt"
	"os"
	"strings"
)

// TextExtractor handles plain text files. Form feeds delimit pages, so a
// single-file export of a paginated document keeps its page numbers.
type TextExtractor struct{}

func (e *TextExtractor) SupportedFormats() []string { return []string{"txt", "text", "md"} }

func (e *TextExtractor) Extract(path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading text file: %w", err)
	}
	var pages []Page
	for i, part := range strings.Split(string(data), "\f") {
		pages = append(pages, Page{Page: i + 1, Text: part})
	}
	return pages, nil
}

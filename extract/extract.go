// Package extract turns policy documents into cleaned page texts for
// analysis. Extraction is best-effort: a file that cannot be read or
// yields no text produces an empty page list, never an error that aborts
// the analysis.
package extract

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// Page is one extracted document page.
type Page struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Extractor reads a document into pages.
type Extractor interface {
	SupportedFormats() []string
	Extract(path string) ([]Page, error)
}

// Registry maps file extensions to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry with the built-in extractors.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	for _, e := range []Extractor{&PDFExtractor{}, &TextExtractor{}, &XLSXExtractor{}} {
		for _, f := range e.SupportedFormats() {
			r.extractors[f] = e
		}
	}
	return r
}

// Register adds or replaces the extractor for a format.
func (r *Registry) Register(format string, e Extractor) {
	r.extractors[format] = e
}

// Get returns the extractor for a format.
func (r *Registry) Get(format string) (Extractor, error) {
	e, ok := r.extractors[format]
	if !ok {
		return nil, fmt.Errorf("no extractor for format: %s", format)
	}
	return e, nil
}

// Load extracts and cleans a document, picking the extractor from the file
// extension. Empty pages are dropped and pages renumbered from 1. Any
// failure degrades to an empty result with a warning.
func (r *Registry) Load(path string) []Page {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	e, err := r.Get(format)
	if err != nil {
		slog.Warn("extract: unsupported document format", "path", path, "format", format)
		return nil
	}
	raw, err := e.Extract(path)
	if err != nil {
		slog.Warn("extract: extraction failed", "path", path, "error", err)
		return nil
	}
	out := make([]Page, 0, len(raw))
	for _, p := range raw {
		text := cleanText(p.Text)
		if text == "" {
			continue
		}
		out = append(out, Page{Page: len(out) + 1, Text: text})
	}
	return out
}

var (
	hyphenBreakRe = regexp.MustCompile(`(\w)-\n(\w)`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
	newlineRunRe  = regexp.MustCompile(`\s*\n\s*`)
	invisibleRepl = strings.NewReplacer(
		"\u00ad", "", // soft hyphen
		"\u200b", "", // zero-width space
		"\u200c", "", // zero-width non-joiner
		"\u200d", "", // zero-width joiner
		"\ufeff", "", // BOM
		"\u00a0", " ", // non-breaking space
	)
)

// cleanText normalizes extracted text: invisible characters stripped,
// words rejoined across hyphenated line breaks, runs of spaces and
// newlines collapsed.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	s = invisibleRepl.Replace(s)
	s = hyphenBreakRe.ReplaceAllString(s, "$1$2")
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = newlineRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

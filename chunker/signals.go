package chunker

import (
	"regexp"
	"strings"
)

// DefaultSignalLines caps how many signal sentences are extracted.
const DefaultSignalLines = 20

// gdprSignalPattern matches sentence-level cues that the data-protection
// assessment must see even after truncation: consent, lawful basis, the
// commonly-cited articles, DPIA, profiling, automated decisions.
var gdprSignalPattern = regexp.MustCompile(`(?i)(consent|lawful|legal\s+basis|art\.?\s*5|art\.?\s*6|art\.?\s*9|art\.?\s*13|art\.?\s*14|art\.?\s*22|dpia|data\s+minimi[sz]ation|personal\s+data|data\s+subject|profiling|automated\s+decision)`)

// ExtractGDPRSignals returns the sentence-like units of text matching the
// GDPR keyword pattern, deduplicated by lowercase form in first-seen order
// and capped at maxLines (DefaultSignalLines when <= 0). The result is a
// newline-joined block suitable for prepending to the user text.
func ExtractGDPRSignals(text string, maxLines int) string {
	if maxLines <= 0 {
		maxLines = DefaultSignalLines
	}
	seen := make(map[string]bool)
	var out []string
	for _, unit := range splitUnits(text) {
		if !gdprSignalPattern.MatchString(unit) {
			continue
		}
		key := strings.ToLower(unit)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, unit)
		if len(out) >= maxLines {
			break
		}
	}
	return strings.Join(out, "\n")
}

// splitUnits breaks text into sentence-like units: at newlines and after a
// terminator (. ! ?) followed by whitespace.
func splitUnits(text string) []string {
	var units []string
	var cur strings.Builder

	flush := func() {
		s := strings.TrimSpace(cur.String())
		if s != "" {
			units = append(units, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\t' || runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()
	return units
}

package report

import (
	"regexp"
	"sort"
	"strings"
)

// Theme is a compliance topic a violation can be mapped to for negation
// scanning.
type Theme string

const (
	ThemeBiometric Theme = "biometric"
	ThemeProfiling Theme = "profiling"
	ThemeRetention Theme = "retention"
	ThemeSharing   Theme = "sharing_transfer"
	ThemeEmotion   Theme = "emotion"
)

// themeCues holds per-theme keyword patterns, English and Italian.
var themeCues = map[Theme][]*regexp.Regexp{
	ThemeBiometric: compileAll(`\bbiometric`, `\bface`, `\bfacial`, `\bimpronte`, `\bbiometr`, `\bvolto`),
	ThemeProfiling: compileAll(`\bprofil`, `\bprofiling`, `\bprofilazione`),
	ThemeRetention: compileAll(`\bretain`, `\bretention`, `\bconserva`, `\bconservazione`),
	ThemeSharing:   compileAll(`\bshare`, `\btransfer`, `\btrasfer`, `\bcondivis`),
	ThemeEmotion:   compileAll(`\bemotion`, `\bemotional`, `\bemozion`),
}

// inferThemeOrder fixes the priority when a violation matches several
// themes.
var inferThemeOrder = []Theme{ThemeBiometric, ThemeEmotion, ThemeProfiling, ThemeRetention, ThemeSharing}

var negationRe = regexp.MustCompile(strings.Join([]string{
	`\bno\b`, `\bnot\b`, `\bnever\b`, `\bwithout\b`, `\bdoes?\s+not\b`,
	`\bnon\b`, `\bmai\b`, `\bsenza\b`, `\bnon\s+viene(?:\s+mai)?\b`,
}, "|"))

var wordRe = regexp.MustCompile(`\w+`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// inferTheme maps a violation to a theme by scanning its title and reason.
func inferTheme(v *Violation) (Theme, bool) {
	blob := strings.ToLower(v.Title + " " + v.Reason)
	for _, theme := range inferThemeOrder {
		for _, cue := range themeCues[theme] {
			if cue.MatchString(blob) {
				return theme, true
			}
		}
	}
	return "", false
}

// NegationDetector reports whether a theme is explicitly negated in a
// text. It is a swappable strategy: replace or nil it on the Reconciler to
// change or disable the step.
type NegationDetector struct {
	// Window is the maximum distance, in words, between a theme cue and a
	// negation token.
	Window int
}

// NewNegationDetector returns a detector with the default 12-word window.
func NewNegationDetector() *NegationDetector {
	return &NegationDetector{Window: 12}
}

// Covered reports whether any cue of the theme occurs within Window words
// of a negation token in text. Word positions are counted over \w+ tokens
// of the lower-cased text.
func (d *NegationDetector) Covered(text string, theme Theme) bool {
	cues, ok := themeCues[theme]
	if !ok || text == "" {
		return false
	}
	lower := strings.ToLower(text)
	wordStarts := wordRe.FindAllStringIndex(lower, -1)

	wordIndex := func(offset int) int {
		// Number of words beginning before the offset.
		return sort.Search(len(wordStarts), func(i int) bool {
			return wordStarts[i][0] >= offset
		})
	}

	var negIdxs []int
	for _, m := range negationRe.FindAllStringIndex(lower, -1) {
		negIdxs = append(negIdxs, wordIndex(m[0]))
	}
	if len(negIdxs) == 0 {
		return false
	}

	for _, cue := range cues {
		for _, m := range cue.FindAllStringIndex(lower, -1) {
			ki := wordIndex(m[0])
			for _, ni := range negIdxs {
				if abs(ki-ni) <= d.Window {
					return true
				}
			}
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package report

import (
	"fmt"
	"regexp"
	"strings"

	"lawlens/corpus"
)

// gdprTitles maps normalized GDPR article labels to their official titles.
var gdprTitles = map[string]string{
	"Art. 5":  "Principles relating to processing",
	"Art. 6":  "Lawfulness of processing",
	"Art. 8":  "Conditions applicable to child's consent",
	"Art. 9":  "Processing of special categories of personal data",
	"Art. 13": "Information to be provided where personal data are collected",
	"Art. 14": "Information to be provided where personal data have not been obtained",
	"Art. 15": "Right of access by the data subject",
	"Art. 24": "Responsibility of the controller",
	"Art. 25": "Data protection by design and by default",
	"Art. 30": "Records of processing activities",
	"Art. 32": "Security of processing",
	"Art. 35": "Data protection impact assessment",
	"Art. 44": "General principle for transfers",
	"Art. 45": "Transfers on the basis of an adequacy decision",
	"Art. 46": "Transfers subject to appropriate safeguards",
	"Art. 49": "Derogations for specific situations",
}

// gdprTitleToArt is the inverse lookup, keyed by normalized title.
var gdprTitleToArt = func() map[string]string {
	m := make(map[string]string, len(gdprTitles))
	for art, title := range gdprTitles {
		m[normTitle(title)] = art
	}
	return m
}()

// aiKeyMap resolves unknown AI Act articles from keyphrases. Order matters:
// the first matching key wins.
var aiKeyMap = []struct {
	key     string
	article string
	title   string
}{
	{"risk management", "Art. 9", "Risk management system"},
	{"data governance", "Art. 10", "Data and data governance"},
	{"human oversight", "Art. 14", "Human oversight"},
	{"transparency", "Art. 13", "Transparency and information to users"},
	{"conformity", "Art. 43", "Conformity assessment"},
}

var artNumRe = regexp.MustCompile(`(?i)art\.?\s*(\d+)`)

func normTitle(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "’", "'")
}

// normArtKey reduces any article spelling to its bare digits, so that
// "Art. 46", "art.46" and "46" compare equal.
func normArtKey(x string) string {
	s := strings.ToLower(x)
	s = strings.ReplaceAll(s, "art.", "")
	s = strings.ReplaceAll(s, "art", "")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func gdprExpectedTitle(art string) string {
	want := normArtKey(art)
	for k, v := range gdprTitles {
		if normArtKey(k) == want {
			return v
		}
	}
	return ""
}

func isAIAct(law string) bool {
	s := strings.ReplaceAll(strings.ToLower(law), " ", "_")
	return s == "ai_act" || s == "aiact"
}

var unknownArticles = map[string]struct{}{
	"": {}, "unknown": {}, "art. ?": {}, "?": {},
}

// guardRule auto-corrects a known misclassification: when the violation
// text matches the pattern under the given law but states a different
// article, the article is rewritten and the original recorded.
type guardRule struct {
	law     string // upper-cased display label
	pattern *regexp.Regexp
	article string
}

var guardRules = []guardRule{
	{
		law:     "GDPR",
		pattern: regexp.MustCompile(`(?i)\btransfer(s)?\b|outside\s+eu|third\s+countr|extra[-\s]?ue|trasfer|trasferiment|paesi\s+terzi|paese\s+terzo`),
		article: "Art. 46",
	},
	{
		law:     "AI ACT",
		pattern: regexp.MustCompile(`(?i)\bconformity\b|\bassessment\b|valutazione\s+conformit`),
		article: "Art. 43",
	},
}

// Reconciler applies the rule-based reconciliation pass to a merged
// assessment. The zero value enables coherence warnings and no citation
// cap; a nil Negation skips the negation step.
type Reconciler struct {
	// MaxCitations truncates the top-level citation list when positive.
	MaxCitations int
	// WarnCoherence emits GDPR title/article coherence warnings.
	WarnCoherence bool
	// Negation flags violations whose theme appears negated in the
	// subject text.
	Negation *NegationDetector
}

// NewReconciler returns a reconciler with coherence warnings on and the
// default negation detector.
func NewReconciler() *Reconciler {
	return &Reconciler{WarnCoherence: true, Negation: NewNegationDetector()}
}

// Enforce normalizes the assessment in place and returns ordered,
// non-blocking warnings. evidence is the retrieval evidence set (citation
// pools); subjectText is the analyzed user text (negation scanning). Steps
// run in a fixed order; the pass is idempotent.
func (r *Reconciler) Enforce(a *Assessment, evidence []corpus.Chunk, subjectText string) []string {
	var warnings []string

	// 1. Risk level is always derived from the score.
	a.RiskLevel = LevelFromScore(int(a.RiskScore))

	// 2. Article and title normalization.
	r.normalizeArticles(a, evidence)

	// 3. Citation parity: exactly one citation per violation, top-level
	// list rebuilt positionally.
	r.alignCitations(a, evidence)

	// 4. Negation flags (advisory, never removes a violation).
	if r.Negation != nil && subjectText != "" {
		for i := range a.Violations {
			theme, ok := inferTheme(&a.Violations[i])
			if ok && r.Negation.Covered(subjectText, theme) {
				a.Violations[i].CoveredByNegation = true
			}
		}
	}

	// 5. Guard-rail auto-correction.
	for i := range a.Violations {
		v := &a.Violations[i]
		law := strings.ToUpper(strings.TrimSpace(v.Law))
		blob := strings.ToLower(v.Title + " " + v.Reason)
		for _, rule := range guardRules {
			if rule.law != law || !rule.pattern.MatchString(blob) {
				continue
			}
			if normArtKey(v.Article) != normArtKey(rule.article) {
				v.AutocorrectedFrom = strings.TrimSpace(v.Article)
				v.Article = rule.article
			}
		}
	}

	// 6. GDPR title/article coherence warnings.
	if r.WarnCoherence {
		for i := range a.Violations {
			v := &a.Violations[i]
			if strings.ToUpper(v.Law) != "GDPR" || v.Article == "" {
				continue
			}
			expected := gdprExpectedTitle(v.Article)
			if expected != "" && normTitle(v.Title) != normTitle(expected) {
				warnings = append(warnings, fmt.Sprintf(
					"GDPR coherence warning: %s expected '%s', got '%s'.",
					v.Article, expected, v.Title))
			}
		}
	}

	// 7. Optional citation cap. Violations keep their own citations.
	if r.MaxCitations > 0 && len(a.Citations) > r.MaxCitations {
		a.Citations = a.Citations[:r.MaxCitations]
		warnings = append(warnings, fmt.Sprintf("Citations capped to %d for stability.", r.MaxCitations))
	}

	return warnings
}

func (r *Reconciler) normalizeArticles(a *Assessment, evidence []corpus.Chunk) {
	for i := range a.Violations {
		v := &a.Violations[i]
		law := strings.TrimSpace(v.Law)
		artRaw := strings.TrimSpace(v.Article)
		title := strings.TrimSpace(v.Title)

		switch {
		case strings.ToUpper(law) == "GDPR":
			// Official title match wins over a parsed article number.
			var stdFromNum string
			if m := artNumRe.FindStringSubmatch(artRaw); m != nil {
				stdFromNum = "Art. " + m[1]
			}
			stdFromTitle := gdprTitleToArt[normTitle(title)]
			if stdFromTitle != "" {
				v.Article = stdFromTitle
				v.Title = gdprTitles[stdFromTitle]
			} else if stdFromNum != "" {
				v.Article = stdFromNum
				if t, ok := gdprTitles[stdFromNum]; ok {
					v.Title = t
				}
			}

		case isAIAct(law):
			if _, unknown := unknownArticles[strings.ToLower(artRaw)]; !unknown {
				continue
			}
			blob := strings.ToLower(v.Reason + " " + title)
			if !r.pickAIArticle(v, blob) {
				// Fall back to the AI Act evidence text.
				var b strings.Builder
				for _, e := range evidence {
					if corpus.Canonical(string(e.Source)) == corpus.AIAct {
						b.WriteString(strings.ToLower(e.Text))
						b.WriteString(" ")
					}
				}
				r.pickAIArticle(v, b.String())
			}
		}
	}
}

func (r *Reconciler) pickAIArticle(v *Violation, blob string) bool {
	for _, km := range aiKeyMap {
		if strings.Contains(blob, km.key) {
			v.Article = km.article
			v.Title = km.title
			return true
		}
	}
	return false
}

// alignCitations guarantees one citation per violation. An existing first
// citation is kept (source canonicalized); otherwise the next unused entry
// of the matching per-law evidence pool is assigned round-robin, falling
// back to the global pool for an unrecognized law. Empty pools get a
// placeholder. The top-level list is rebuilt positionally from the
// violations, so counts always agree.
func (r *Reconciler) alignCitations(a *Assessment, evidence []corpus.Chunk) {
	pool := make([]Citation, 0, len(evidence))
	for _, e := range evidence {
		pool = append(pool, Citation{
			Source: corpus.Canonical(string(e.Source)),
			Page:   PageFrom(e.Page),
			ID:     e.ID,
		})
	}
	if len(pool) == 0 {
		pool = []Citation{{Source: corpus.GDPR}}
	}
	byLaw := map[corpus.LawID][]Citation{}
	for _, c := range pool {
		byLaw[c.Source] = append(byLaw[c.Source], c)
	}
	for _, law := range corpus.Laws {
		if len(byLaw[law]) == 0 {
			byLaw[law] = []Citation{{Source: law}}
		}
	}

	idx := map[corpus.LawID]int{}
	idxAll := 0
	take := func(prefer corpus.LawID, any bool) Citation {
		if any {
			c := pool[idxAll%len(pool)]
			idxAll++
			return c
		}
		sub := byLaw[prefer]
		c := sub[idx[prefer]%len(sub)]
		idx[prefer]++
		return c
	}

	perViolation := make([]Citation, 0, len(a.Violations))
	for _, v := range a.Violations {
		if len(v.Citations) > 0 {
			c := v.Citations[0]
			c.Source = corpus.Canonical(string(c.Source))
			perViolation = append(perViolation, c)
			continue
		}
		law := strings.TrimSpace(v.Law)
		switch {
		case strings.Contains(strings.ToLower(law), "ai"):
			perViolation = append(perViolation, take(corpus.AIAct, false))
		case strings.Contains(strings.ToLower(law), "gdpr"):
			perViolation = append(perViolation, take(corpus.GDPR, false))
		default:
			perViolation = append(perViolation, take("", true))
		}
	}

	for i := range a.Violations {
		if len(a.Violations[i].Citations) == 0 {
			a.Violations[i].Citations = []Citation{perViolation[i]}
		}
	}
	a.Citations = perViolation
}

// Package report defines the unified risk report: the assessment data
// model, the deterministic merge of the two law-scoped assessments, and the
// reconciliation pass that normalizes the merged result before it leaves
// the system.
package report

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"lawlens/corpus"
)

// LevelFromScore derives the risk level from a 0-100 score. The level is
// always recomputed from the score, never trusted from upstream.
func LevelFromScore(score int) string {
	if score < 33 {
		return "low"
	}
	if score < 66 {
		return "medium"
	}
	return "high"
}

// FlexInt decodes a JSON number or numeric string, degrading to 0 on
// anything else. Assessors routinely return risk scores as strings.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*n = FlexInt(int(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*n = FlexInt(v)
			return nil
		}
	}
	*n = 0
	return nil
}

// PageRef is a citation page: an integer when known, "?" on the wire when
// not.
type PageRef struct {
	Num   int
	Known bool
}

// PageFrom builds a PageRef from an optional page number.
func PageFrom(p *int) PageRef {
	if p == nil {
		return PageRef{}
	}
	return PageRef{Num: *p, Known: true}
}

func (p PageRef) MarshalJSON() ([]byte, error) {
	if !p.Known {
		return []byte(`"?"`), nil
	}
	return json.Marshal(p.Num)
}

func (p *PageRef) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*p = PageRef{Num: n, Known: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*p = PageRef{Num: n, Known: true}
			return nil
		}
	}
	*p = PageRef{}
	return nil
}

// String renders the page for prompts and warnings.
func (p PageRef) String() string {
	if !p.Known {
		return "?"
	}
	return strconv.Itoa(p.Num)
}

// Citation points a violation back into the evidence set.
type Citation struct {
	Source corpus.LawID `json:"source"`
	Page   PageRef      `json:"page"`
	ID     string       `json:"id"`
}

// Violation is a single identified compliance risk. Law carries the
// display label ("GDPR" or "AI Act"). Pre-reconciliation a violation holds
// zero or one citations; after reconciliation, exactly one.
type Violation struct {
	Law               string     `json:"law"`
	Article           string     `json:"article"`
	Title             string     `json:"title"`
	Reason            string     `json:"reason"`
	Citations         []Citation `json:"citations,omitempty"`
	AutocorrectedFrom string     `json:"autocorrected_from,omitempty"`
	CoveredByNegation bool       `json:"covered_by_negation,omitempty"`
}

// Coverage records whether a law produced at least one violation.
type Coverage struct {
	Law    string `json:"law"`
	Status string `json:"status"` // "found" or "not_found"
	Notes  string `json:"notes"`
}

// Assessment is the structured result for one law (or, after merging, for
// both). Violations are ordered; recommendations are deduplicated
// preserving first-seen order.
type Assessment struct {
	RiskScore       FlexInt     `json:"risk_score"`
	RiskLevel       string      `json:"risk_level"`
	Violations      []Violation `json:"violations"`
	Recommendations []string    `json:"recommendations"`
	Citations       []Citation  `json:"citations"`
	LawCoverage     []Coverage  `json:"law_coverage"`
}

// Meta is the metadata block attached to every report.
type Meta struct {
	RequestID string         `json:"request_id"`
	Timestamp string         `json:"timestamp"`
	Mode      string         `json:"mode"`
	Policies  []corpus.LawID `json:"policies"`
	TopK      int            `json:"top_k"`
	Pages     int            `json:"pages,omitempty"`
}

// Report is the final artifact: one merged, reconciled assessment plus
// metadata. It is created fresh per analysis request and immutable once
// returned to the caller.
type Report struct {
	Assessment
	Meta Meta `json:"meta"`
}

package report

import (
	"strings"

	"lawlens/corpus"
)

// Merge combines the two law-scoped assessments into one. GDPR violations
// come first, then AI Act, each in assessor order and tagged with the law
// display label. Violations are never deduplicated across laws: the same
// article number under different laws is a distinct finding. The merged
// risk score is the maximum of the two; the level is recomputed from it.
func Merge(gdpr, aiAct Assessment) Assessment {
	var out Assessment

	for _, v := range gdpr.Violations {
		v.Law = corpus.GDPR.Display()
		out.Violations = append(out.Violations, v)
	}
	for _, v := range aiAct.Violations {
		v.Law = corpus.AIAct.Display()
		out.Violations = append(out.Violations, v)
	}

	out.Recommendations = dedupTrimmed(append(
		append([]string{}, gdpr.Recommendations...),
		aiAct.Recommendations...,
	))

	// Raw concatenation only; the reconciliation pass rebuilds citations
	// 1:1 with violations.
	out.Citations = append(append([]Citation{}, gdpr.Citations...), aiAct.Citations...)

	out.RiskScore = gdpr.RiskScore
	if aiAct.RiskScore > out.RiskScore {
		out.RiskScore = aiAct.RiskScore
	}
	out.RiskLevel = LevelFromScore(int(out.RiskScore))

	out.LawCoverage = []Coverage{
		coverageFor(corpus.GDPR, out.Violations),
		coverageFor(corpus.AIAct, out.Violations),
	}
	return out
}

func coverageFor(law corpus.LawID, violations []Violation) Coverage {
	status := "not_found"
	for _, v := range violations {
		if v.Law == law.Display() {
			status = "found"
			break
		}
	}
	return Coverage{Law: law.Display(), Status: status}
}

// dedupTrimmed removes exact duplicates after trimming, keeping first-seen
// order and dropping empties.
func dedupTrimmed(xs []string) []string {
	seen := make(map[string]struct{}, len(xs))
	var out []string
	for _, x := range xs {
		k := strings.TrimSpace(x)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

package assess

import (
	"encoding/json"
	"strings"

	"lawlens/corpus"
	"lawlens/report"
)

// systemContract is the fixed system message. It pins the output schema and
// the grounding rules: the assessor may only cite the provided snippets,
// must quote the policy text, and must report per-law coverage.
const systemContract = `You are a precise legal compliance assistant.
You MUST evaluate the POLICY TEXT strictly within the scope stated by the user instruction.
Use ONLY LAW_SNIPPETS as legal basis. If an article is not present in LAW_SNIPPETS, say "unknown".
Identify up to 3 distinct violations for the law under evaluation. Do not collapse them.
If fewer than 3 exist, return only what is supported by LAW_SNIPPETS.
Every identified risk MUST be justified with a concrete 15-30 word QUOTE from the policy text and at least one citation referencing LAW_SNIPPETS.
Be concise, professional, explicit. Return ONLY valid JSON.
Ensure risk_score and risk_level are consistent (0-100: low<33, medium<66, else high).
If minors are involved, explicitly assess GDPR Art. 8 conditions.
You MUST also report coverage for the law under evaluation (found/not_found) with a one-line reason.`

const responseSchema = `{
  "risk_score": int,
  "risk_level": "low"|"medium"|"high",
  "violations": [
    {
      "law": "GDPR"|"AI Act",
      "article": "Art. X(...)"|"unknown",
      "title": "short title",
      "reason": "why this is a violation, grounded in LAW_SNIPPETS. Include QUOTE: \"...15-30 words from POLICY TEXT...\""
    }
  ],
  "recommendations": ["short, actionable"],
  "citations": [
    {
      "source": "gdpr"|"ai_act",
      "page": int,
      "id": "chunk id from LAW_SNIPPETS"
    }
  ],
  "law_coverage": [
    {"law": "GDPR"|"AI Act", "status": "found"|"not_found", "notes": "one line justification"}
  ]
}`

// preambles scope each request to a single law. The GDPR preamble forces an
// assessment even when the policy never says "personal data".
var preambles = map[corpus.LawID]string{
	corpus.GDPR: "MANDATORY: Evaluate GDPR applicability to this corporate AI policy. " +
		"Identify gaps vs Arts 5,6,9,13,14,22,35 even if 'personal data' is not explicitly mentioned. " +
		"Cite only GDPR. Do not discuss the AI Act.",
	corpus.AIAct: "MANDATORY: Evaluate ONLY the EU AI Act requirements for this policy. " +
		"Cite only the AI Act.",
}

// excerptCap bounds each serialized evidence excerpt in characters.
const excerptCap = 1200

type evidenceItem struct {
	ID      string         `json:"id"`
	Page    report.PageRef `json:"page"`
	Source  corpus.LawID   `json:"source"`
	Excerpt string         `json:"excerpt"`
}

// formatEvidence serializes the evidence set as a JSON array of
// {id, page, source, excerpt} objects, newlines flattened and excerpts
// capped so a few long chunks cannot crowd out the rest.
func formatEvidence(evidence []corpus.Chunk) string {
	items := make([]evidenceItem, 0, len(evidence))
	for _, e := range evidence {
		txt := strings.TrimSpace(strings.ReplaceAll(e.Text, "\n", " "))
		if len(txt) > excerptCap {
			txt = txt[:excerptCap]
		}
		items = append(items, evidenceItem{
			ID:      e.ID,
			Page:    report.PageFrom(e.Page),
			Source:  e.Source,
			Excerpt: txt,
		})
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// buildPrompt assembles the user message: law-scoped instruction, the
// policy text, the response schema and the serialized evidence.
func buildPrompt(law corpus.LawID, userText string, evidence []corpus.Chunk) string {
	var b strings.Builder
	b.WriteString(preambles[law])
	b.WriteString("\n\n")
	b.WriteString("Evaluate the following POLICY TEXT using the LAW_SNIPPETS provided.\n\n")
	b.WriteString("Return STRICT JSON with this schema:\n\n")
	b.WriteString(responseSchema)
	b.WriteString("\n\nCONSTRAINTS:\n")
	b.WriteString("- Return up to 3 violations for the law under evaluation.\n")
	b.WriteString("- Each violation MUST include a 15-30 word QUOTE from POLICY TEXT and at least one citation from LAW_SNIPPETS.\n")
	b.WriteString("- If the law has fewer than 3 supported violations, return only the supported ones and explain in law_coverage.\n")
	b.WriteString("- Do NOT cite articles absent from LAW_SNIPPETS; use \"unknown\" instead.\n\n")
	b.WriteString("POLICY TEXT:\n")
	b.WriteString(userText)
	b.WriteString("\n\nLAW_SNIPPETS (JSON array of objects: id, page, source, excerpt):\n")
	b.WriteString(formatEvidence(evidence))
	return b.String()
}

// Package assess dispatches law-scoped risk assessments to the external
// model and turns its responses into structured assessments. Each law gets
// its own request with a fixed seed, so runs are as deterministic as the
// backend allows.
package assess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"lawlens/corpus"
	"lawlens/llm"
	"lawlens/report"
)

// ErrContract reports a model response that could not be parsed as the
// required JSON contract, even after repair. The raw response is attached
// to the wrapped error. The dispatcher never retries; surfacing the broken
// response is the caller's signal.
var ErrContract = errors.New("assess: model response violates the output contract")

// seeds fixes the sampling seed per law so the two assessments cannot
// bleed into each other across runs.
var seeds = map[corpus.LawID]int{
	corpus.GDPR:  42,
	corpus.AIAct: 43,
}

// Dispatcher issues one scoped assessment request per law.
type Dispatcher struct {
	provider llm.Provider
	model    string
}

// NewDispatcher creates a dispatcher on the given chat provider. model may
// be empty to use the provider default.
func NewDispatcher(provider llm.Provider, model string) *Dispatcher {
	return &Dispatcher{provider: provider, model: model}
}

// Assess evaluates userText against a single law, grounded exclusively on
// the given evidence chunks. Temperature is pinned to 0.
func (d *Dispatcher) Assess(ctx context.Context, law corpus.LawID, userText string, evidence []corpus.Chunk) (report.Assessment, error) {
	resp, err := d.provider.Chat(ctx, llm.ChatRequest{
		Model: d.model,
		Messages: []llm.Message{
			{Role: "system", Content: systemContract},
			{Role: "user", Content: buildPrompt(law, userText, evidence)},
		},
		Temperature: 0,
		Seed:        seeds[law],
	})
	if err != nil {
		return report.Assessment{}, fmt.Errorf("assessing %s: %w", law.Display(), err)
	}
	return parseAssessment(resp.Content)
}

// parseAssessment decodes the model output. Models wrap JSON in prose or
// fences often enough that decoding proceeds in stages: verbatim, then the
// outermost brace span, then a repaired version of that span. Only when
// all three fail is the response rejected. Missing fields keep their zero
// values; the risk level is always recomputed from the score.
func parseAssessment(content string) (report.Assessment, error) {
	content = strings.TrimSpace(content)

	var a report.Assessment
	if err := json.Unmarshal([]byte(content), &a); err == nil {
		return finalize(a), nil
	}

	candidate := braceSpan(content)
	if candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &a); err == nil {
			return finalize(a), nil
		}
		if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
			if err := json.Unmarshal([]byte(repaired), &a); err == nil {
				return finalize(a), nil
			}
		}
	}

	return report.Assessment{}, fmt.Errorf("%w; raw response: %s", ErrContract, content)
}

// braceSpan returns the substring from the first "{" to the last "}", or
// "" when no such span exists.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func finalize(a report.Assessment) report.Assessment {
	a.RiskLevel = report.LevelFromScore(int(a.RiskScore))
	return a
}

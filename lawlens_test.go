package lawlens

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"lawlens/assess"
	"lawlens/chunker"
	"lawlens/corpus"
	"lawlens/extract"
	"lawlens/llm"
	"lawlens/report"
	"lawlens/retrieval"
)

// lawScopedProvider answers each assessment with a canned per-law
// response, keyed off the scope preamble in the user message. The two
// assessments arrive on concurrent goroutines, so the recorded requests
// are mutex-guarded.
type lawScopedProvider struct {
	gdpr string
	ai   string

	mu   sync.Mutex
	reqs []llm.ChatRequest
}

func (p *lawScopedProvider) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()
	if strings.Contains(req.Messages[1].Content, "Cite only GDPR") {
		return &llm.ChatResponse{Content: p.gdpr}, nil
	}
	return &llm.ChatResponse{Content: p.ai}, nil
}

func (p *lawScopedProvider) recorded() []llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.ChatRequest{}, p.reqs...)
}

func (p *lawScopedProvider) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("no embedder in tests")
}

const gdprResponse = `{
	"risk_score": 55,
	"violations": [{"law":"GDPR","article":"42","title":"Transfers","reason":"transfer outside EU without safeguards"}],
	"recommendations": ["Adopt SCCs for transfers"],
	"citations": []
}`

const aiResponse = `{
	"risk_score": 70,
	"violations": [{"law":"AI Act","article":"unknown","title":"oversight gap","reason":"no human oversight of automated outputs"}],
	"recommendations": ["Define a human oversight procedure"],
	"citations": []
}`

func buildTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for law, lines := range map[corpus.LawID][]string{
		corpus.GDPR: {
			`{"id":"g1","text":"consent and lawful basis for processing personal data","page":1}`,
			`{"id":"g2","text":"transfers of personal data to third countries","page":2}`,
		},
		corpus.AIAct: {
			`{"id":"a1","text":"high-risk systems require human oversight","page":5}`,
			`{"id":"a2","text":"providers shall establish a risk management system","page":6}`,
		},
	} {
		lawDir := filepath.Join(dir, string(law))
		if err := os.MkdirAll(lawDir, 0755); err != nil {
			t.Fatal(err)
		}
		content := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(lawDir, "chunks.jsonl"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestAnalyzer(t *testing.T, p llm.Provider) *analyzer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CorpusDir = buildTestCorpus(t)
	return &analyzer{
		cfg:        cfg,
		chunks:     corpus.NewStore(cfg.CorpusDir),
		retriever:  retrieval.New(corpus.NewStore(cfg.CorpusDir), nil),
		dispatcher: assess.NewDispatcher(p, "test-model"),
		reconciler: report.NewReconciler(),
		extractor:  extract.NewRegistry(),
		chunker:    chunker.New(cfg.Chunking),
	}
}

func TestAnalyzeValidation(t *testing.T) {
	a := newTestAnalyzer(t, &lawScopedProvider{gdpr: gdprResponse, ai: aiResponse})

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"unknown mode", Request{Mode: "batch"}, ErrInvalidRequest},
		{"free text without text", Request{Mode: ModeFreeText, UserText: "  "}, ErrInvalidRequest},
		{"document without path", Request{Mode: ModeDocument}, ErrInvalidRequest},
		{"document missing", Request{Mode: ModeDocument, DocumentPath: "/nonexistent.pdf"}, ErrDocumentNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := a.Analyze(context.Background(), c.req)
			if !errors.Is(err, c.want) {
				t.Errorf("err = %v, want %v", err, c.want)
			}
		})
	}
}

func TestAnalyzeFreeText(t *testing.T) {
	p := &lawScopedProvider{gdpr: gdprResponse, ai: aiResponse}
	a := newTestAnalyzer(t, p)

	rep, warnings, err := a.Analyze(context.Background(), Request{
		Mode:     ModeFreeText,
		UserText: "We transfer personal data outside the EU and use automated profiling.",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	// Max of the two scores, level recomputed.
	if rep.RiskScore != 70 || rep.RiskLevel != "high" {
		t.Errorf("risk = %d/%s, want 70/high", rep.RiskScore, rep.RiskLevel)
	}

	// GDPR violation first, transfer guard-rail applied.
	if len(rep.Violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(rep.Violations))
	}
	v := rep.Violations[0]
	if v.Law != "GDPR" || v.Article != "Art. 46" || v.AutocorrectedFrom != "42" {
		t.Errorf("violations[0] = %+v, want GDPR Art. 46 autocorrected from 42", v)
	}
	// AI Act unknown article resolved by keyword.
	if rep.Violations[1].Article != "Art. 14" {
		t.Errorf("violations[1].article = %q, want Art. 14", rep.Violations[1].Article)
	}

	// Citation parity against retrieved evidence.
	if len(rep.Citations) != len(rep.Violations) {
		t.Errorf("citations = %d, violations = %d, want parity", len(rep.Citations), len(rep.Violations))
	}
	for i, c := range rep.Citations {
		if c.ID == "" {
			t.Errorf("citations[%d] has empty id, evidence pools were non-empty", i)
		}
	}

	if rep.Meta.RequestID == "" || rep.Meta.Mode != ModeFreeText || rep.Meta.TopK != 12 {
		t.Errorf("meta = %+v", rep.Meta)
	}
	if len(rep.Meta.Policies) != 2 {
		t.Errorf("policies = %v, want both laws", rep.Meta.Policies)
	}

	// Transfer title mismatch produces a coherence warning, not an error.
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "coherence warning") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a coherence warning, got %v", warnings)
	}

	// Both assessments dispatched with their law seeds.
	seeds := map[int]bool{}
	for _, r := range p.recorded() {
		seeds[r.Seed] = true
	}
	if !seeds[42] || !seeds[43] {
		t.Errorf("seeds used = %v, want 42 and 43", seeds)
	}
}

func TestAnalyzeDocumentMode(t *testing.T) {
	p := &lawScopedProvider{gdpr: gdprResponse, ai: aiResponse}
	a := newTestAnalyzer(t, p)

	path := filepath.Join(t.TempDir(), "policy.txt")
	content := "We collect personal data and profile users.\fWe transfer data to third countries without safeguards."
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rep, _, err := a.Analyze(context.Background(), Request{Mode: ModeDocument, DocumentPath: path})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Meta.Pages != 2 {
		t.Errorf("meta.pages = %d, want 2", rep.Meta.Pages)
	}

	// The assembled policy text leads with the GDPR signal lines.
	var gdprPrompt string
	for _, r := range p.recorded() {
		if r.Seed == 42 {
			gdprPrompt = r.Messages[1].Content
		}
	}
	idx := strings.Index(gdprPrompt, "POLICY TEXT:\n")
	if idx == -1 {
		t.Fatal("prompt missing policy text block")
	}
	body := gdprPrompt[idx+len("POLICY TEXT:\n"):]
	if !strings.HasPrefix(body, "We collect personal data") {
		t.Errorf("policy text does not lead with signal lines:\n%.200s", body)
	}
}

func TestAnalyzeSinglePolicy(t *testing.T) {
	p := &lawScopedProvider{gdpr: gdprResponse, ai: aiResponse}
	a := newTestAnalyzer(t, p)

	rep, _, err := a.Analyze(context.Background(), Request{
		Mode:     ModeFreeText,
		UserText: "We transfer personal data outside the EU.",
		Policies: []string{"GDPR"},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if reqs := p.recorded(); len(reqs) != 1 || reqs[0].Seed != 42 {
		t.Fatalf("expected a single GDPR assessment, got %d requests", len(reqs))
	}
	for _, v := range rep.Violations {
		if v.Law != "GDPR" {
			t.Errorf("unexpected law %q with gdpr-only policies", v.Law)
		}
	}
	if len(rep.Meta.Policies) != 1 || rep.Meta.Policies[0] != corpus.GDPR {
		t.Errorf("meta.policies = %v, want [gdpr]", rep.Meta.Policies)
	}
	// AI Act coverage reports not_found.
	for _, cov := range rep.LawCoverage {
		if cov.Law == "AI Act" && cov.Status != "not_found" {
			t.Errorf("AI Act coverage = %q, want not_found", cov.Status)
		}
	}
}

func TestAnalyzeContractFailureIsFatal(t *testing.T) {
	p := &lawScopedProvider{gdpr: "I refuse to answer.", ai: aiResponse}
	a := newTestAnalyzer(t, p)

	_, _, err := a.Analyze(context.Background(), Request{Mode: ModeFreeText, UserText: "anything"})
	if !errors.Is(err, ErrAssessorContract) {
		t.Fatalf("err = %v, want ErrAssessorContract", err)
	}
}

func TestNewRequiresChatProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chat = llm.Config{}
	if _, err := New(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestCanonicalPolicies(t *testing.T) {
	got := canonicalPolicies([]string{"EU AI Act", "GDPR", "gdpr"})
	if !got[corpus.AIAct] || !got[corpus.GDPR] {
		t.Errorf("policies = %v, want both laws", got)
	}
	if got := canonicalPolicies(nil); !got[corpus.GDPR] || !got[corpus.AIAct] {
		t.Errorf("empty policies = %v, want both laws", got)
	}
}

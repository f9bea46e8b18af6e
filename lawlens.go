// Package lawlens analyzes policy documents and free-form text for
// compliance risk against the EU GDPR and the EU AI Act. It retrieves the
// most relevant regulatory passages per law, obtains independent law-scoped
// assessments from an external model, merges them deterministically and
// applies a rule-based reconciliation pass before returning the report.
package lawlens

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lawlens/assess"
	"lawlens/chunker"
	"lawlens/corpus"
	"lawlens/extract"
	"lawlens/llm"
	"lawlens/report"
	"lawlens/retrieval"
	"lawlens/store"
)

// Analysis modes.
const (
	ModeDocument = "document"
	ModeFreeText = "free_text"
)

// Query expansions appended to the per-law retrieval queries.
const (
	gdprFocus = "[GDPR focus: Arts 5,6,9,13,14,22,35; consent; lawful basis; transparency; minimization; profiling; automated decision; DPIA]"
	aiFocus   = "[AI Act focus: Art.5 prohibited; Art.10 data & governance; Art.13 transparency; Art.14 oversight; Art.15 robustness; Annex III]"
)

// Request is one analysis request. Mode selects the input: document mode
// reads DocumentPath, free_text mode reads UserText.
type Request struct {
	Mode         string `json:"mode"`
	DocumentPath string `json:"document_path,omitempty"`
	UserText     string `json:"user_text,omitempty"`
	// Policies restricts the evaluated laws. Empty means both.
	Policies []string `json:"policies,omitempty"`
	// TopK overrides the configured evidence budget when positive.
	TopK int `json:"top_k,omitempty"`
}

// Engine is the main entry point for compliance analysis.
type Engine interface {
	// Analyze runs the full pipeline and returns the reconciled report
	// plus ordered, non-blocking warnings.
	Analyze(ctx context.Context, req Request) (*report.Report, []string, error)

	// Close cleanly shuts down the engine.
	Close() error
}

type analyzer struct {
	cfg        Config
	chunks     *corpus.Store
	retriever  *retrieval.Engine
	dispatcher *assess.Dispatcher
	reconciler *report.Reconciler
	extractor  *extract.Registry
	chunker    *chunker.Chunker
	index      *store.Index
}

// New creates an analysis engine from configuration. The chat provider is
// required; an embedding provider is optional and enables semantic
// retrieval backed by a persistent index.
func New(cfg Config) (Engine, error) {
	if cfg.CorpusDir == "" {
		cfg.CorpusDir = "lawbase"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 12
	}
	if cfg.UserTextCap <= 0 {
		cfg.UserTextCap = 16000
	}

	chat, err := llm.NewProvider(cfg.Chat)
	if err != nil {
		return nil, fmt.Errorf("%w: chat: %v", ErrInvalidConfig, err)
	}

	a := &analyzer{
		cfg:        cfg,
		chunks:     corpus.NewStore(cfg.CorpusDir),
		dispatcher: assess.NewDispatcher(chat, cfg.Chat.Model),
		reconciler: report.NewReconciler(),
		extractor:  extract.NewRegistry(),
		chunker:    chunker.New(cfg.Chunking),
	}
	a.reconciler.MaxCitations = cfg.MaxCitations

	var scorer retrieval.Scorer
	if cfg.Embedding.Provider != "" {
		embedder, err := llm.NewProvider(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding: %v", ErrInvalidConfig, err)
		}
		path := cfg.resolveIndexPath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		index, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening embedding index: %w", err)
		}
		a.index = index
		scorer = retrieval.NewSemanticScorer(embedder, index)
	}
	a.retriever = retrieval.New(a.chunks, scorer)
	return a, nil
}

func (a *analyzer) Close() error {
	if a.index != nil {
		return a.index.Close()
	}
	return nil
}

// Analyze validates the request, assembles the subject text, retrieves
// law-balanced evidence, dispatches one assessment per law concurrently,
// merges and reconciles.
func (a *analyzer) Analyze(ctx context.Context, req Request) (*report.Report, []string, error) {
	started := time.Now()

	userText, signals, pageCount, err := a.subjectText(req)
	if err != nil {
		return nil, nil, err
	}
	policies := canonicalPolicies(req.Policies)

	topK := req.TopK
	if topK <= 0 {
		topK = a.cfg.TopK
	}
	kGDPR := topK / 2
	if kGDPR < 1 {
		kGDPR = 1
	}
	kAI := topK - kGDPR

	// Per-law retrieval with query expansion. The GDPR query leans on the
	// extracted signals so boilerplate cannot drown the GDPR-relevant
	// lines.
	gdprQuery := signals + "\n\n" + gdprFocus
	if strings.TrimSpace(signals) == "" {
		gdprQuery = userText + "\n\n" + gdprFocus
	}
	aiQuery := userText + "\n\n" + aiFocus

	evidence := map[corpus.LawID][]retrieval.ScoredChunk{}
	if policies[corpus.GDPR] && kGDPR > 0 {
		ev, err := a.retriever.Retrieve(ctx, gdprQuery, []corpus.LawID{corpus.GDPR}, kGDPR)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieving gdpr evidence: %w", err)
		}
		evidence[corpus.GDPR] = ev
	}
	if policies[corpus.AIAct] && kAI > 0 {
		ev, err := a.retriever.Retrieve(ctx, aiQuery, []corpus.LawID{corpus.AIAct}, kAI)
		if err != nil {
			return nil, nil, fmt.Errorf("retrieving ai_act evidence: %w", err)
		}
		evidence[corpus.AIAct] = ev
	}

	// One scoped assessment per law. The requests are independent, so
	// they run concurrently; the merge is deterministic regardless of
	// completion order.
	results := make([]report.Assessment, len(corpus.Laws))
	g, gctx := errgroup.WithContext(ctx)
	for i, law := range corpus.Laws {
		if !policies[law] {
			continue
		}
		i, law := i, law
		g.Go(func() error {
			res, err := a.dispatcher.Assess(gctx, law, userText, plainChunks(evidence[law]))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := report.Merge(results[0], results[1])

	// Evidence pool for citation alignment: GDPR first, then AI Act.
	var pool []corpus.Chunk
	pool = append(pool, plainChunks(evidence[corpus.GDPR])...)
	pool = append(pool, plainChunks(evidence[corpus.AIAct])...)

	warnings := a.reconciler.Enforce(&merged, pool, userText)

	rep := &report.Report{
		Assessment: merged,
		Meta: report.Meta{
			RequestID: uuid.NewString(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Mode:      req.Mode,
			Policies:  orderedPolicies(policies),
			TopK:      topK,
			Pages:     pageCount,
		},
	}

	slog.Info("analysis complete",
		"request_id", rep.Meta.RequestID,
		"mode", req.Mode,
		"risk_score", int(rep.RiskScore),
		"violations", len(rep.Violations),
		"warnings", len(warnings),
		"elapsed_ms", time.Since(started).Milliseconds())
	return rep, warnings, nil
}

// subjectText resolves the analyzed text for the request mode. Document
// mode extracts pages, chunks them and prepends the GDPR signal lines
// under the text cap; free_text uses the trimmed input directly.
func (a *analyzer) subjectText(req Request) (userText, signals string, pages int, err error) {
	switch req.Mode {
	case ModeDocument:
		if strings.TrimSpace(req.DocumentPath) == "" {
			return "", "", 0, fmt.Errorf("%w: document mode requires document_path", ErrInvalidRequest)
		}
		if _, statErr := os.Stat(req.DocumentPath); statErr != nil {
			return "", "", 0, fmt.Errorf("%w: %s", ErrDocumentNotFound, req.DocumentPath)
		}
		extracted := a.extractor.Load(req.DocumentPath)
		parts := make([]string, 0, len(extracted))
		for _, p := range extracted {
			parts = append(parts, p.Text)
		}
		fullText := strings.Join(parts, "\n\n")
		signals = chunker.ExtractGDPRSignals(fullText, chunker.DefaultSignalLines)
		chunks := a.chunker.Chunk(fullText)
		return chunker.BuildUserText(signals, chunks, a.cfg.UserTextCap), signals, len(extracted), nil

	case ModeFreeText:
		text := strings.TrimSpace(req.UserText)
		if text == "" {
			return "", "", 0, fmt.Errorf("%w: free_text mode requires user_text", ErrInvalidRequest)
		}
		return text, "", 0, nil

	default:
		return "", "", 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
}

func plainChunks(scored []retrieval.ScoredChunk) []corpus.Chunk {
	out := make([]corpus.Chunk, len(scored))
	for i, sc := range scored {
		out[i] = sc.Chunk
	}
	return out
}

func canonicalPolicies(labels []string) map[corpus.LawID]bool {
	if len(labels) == 0 {
		return map[corpus.LawID]bool{corpus.GDPR: true, corpus.AIAct: true}
	}
	out := map[corpus.LawID]bool{}
	for _, l := range labels {
		out[corpus.Canonical(l)] = true
	}
	return out
}

func orderedPolicies(policies map[corpus.LawID]bool) []corpus.LawID {
	var out []corpus.LawID
	for _, law := range corpus.Laws {
		if policies[law] {
			out = append(out, law)
		}
	}
	return out
}

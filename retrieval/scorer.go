package retrieval

import (
	"context"
	"fmt"
	"strings"

	"lawlens/corpus"
	"lawlens/llm"
	"lawlens/store"
)

// Scorer assigns a relevance score to each chunk for a query. Higher means
// more relevant; the score range is implementation-defined, and the choice
// of scorer must not affect the balancing algorithm.
type Scorer interface {
	Score(ctx context.Context, query string, chunks []corpus.Chunk) ([]float64, error)
}

// LexicalScorer scores by Jaccard similarity over lower-cased
// whitespace-tokenized word sets. It is the fallback when no embedding
// model is configured.
type LexicalScorer struct{}

func (LexicalScorer) Score(_ context.Context, query string, chunks []corpus.Chunk) ([]float64, error) {
	qset := wordSet(query)
	scores := make([]float64, len(chunks))
	for i, ch := range chunks {
		scores[i] = jaccard(qset, wordSet(ch.Text))
	}
	return scores, nil
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / (float64(union) + 1e-9)
}

// embedBatchSize bounds how many texts go to the embedding model per call.
const embedBatchSize = 32

// SemanticScorer scores by cosine similarity between query and chunk
// embeddings. Chunk embeddings are cached in the index keyed by content
// hash, so a corpus is embedded once per process lifetime, not per request.
// The scorer is an explicitly owned resource handle: construct it once and
// share it across requests.
type SemanticScorer struct {
	embedder llm.Provider
	index    *store.Index
}

// NewSemanticScorer creates a scorer backed by the given embedding provider
// and index cache.
func NewSemanticScorer(embedder llm.Provider, index *store.Index) *SemanticScorer {
	return &SemanticScorer{embedder: embedder, index: index}
}

func (s *SemanticScorer) Score(ctx context.Context, query string, chunks []corpus.Chunk) ([]float64, error) {
	qemb, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(qemb) == 0 || len(qemb[0]) == 0 {
		return nil, fmt.Errorf("embedding query: empty result")
	}
	queryVec := qemb[0]

	hashes := make([]string, len(chunks))
	var missing []int
	for i, ch := range chunks {
		hashes[i] = store.ContentHash(ch.Text)
		ok, err := s.index.Has(ctx, string(ch.Source), ch.ID, hashes[i])
		if err != nil {
			return nil, fmt.Errorf("checking index: %w", err)
		}
		if !ok {
			missing = append(missing, i)
		}
	}

	// Embed uncached chunks in batches and persist them.
	for start := 0; start < len(missing); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]
		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = chunks[idx].Text
		}
		embs, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks: %w", err)
		}
		for j, idx := range batch {
			if j >= len(embs) || len(embs[j]) == 0 {
				continue
			}
			ch := chunks[idx]
			if err := s.index.Upsert(ctx, string(ch.Source), ch.ID, hashes[idx], embs[j]); err != nil {
				return nil, fmt.Errorf("caching embedding: %w", err)
			}
		}
	}

	scores := make([]float64, len(chunks))
	for i, ch := range chunks {
		score, ok, err := s.index.Score(ctx, string(ch.Source), ch.ID, hashes[i], queryVec)
		if err != nil {
			return nil, fmt.Errorf("scoring chunk %s: %w", ch.ID, err)
		}
		if ok {
			scores[i] = score
		}
	}
	return scores, nil
}

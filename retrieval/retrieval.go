// Package retrieval selects the regulatory passages most relevant to a
// query, balanced across laws by a per-law quota with global backfill.
package retrieval

import (
	"context"
	"log/slog"
	"sort"

	"lawlens/corpus"
)

// ScoredChunk is a corpus chunk with its relevance score for a query.
type ScoredChunk struct {
	corpus.Chunk
	Score float64 `json:"score"`
}

// Engine retrieves law-balanced top-K chunk selections. The chunk store is
// read-only at request time; an Engine is safe to share across requests.
type Engine struct {
	chunks *corpus.Store
	scorer Scorer
}

// New creates a retrieval engine. A nil scorer selects the lexical
// fallback.
func New(chunks *corpus.Store, scorer Scorer) *Engine {
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	return &Engine{chunks: chunks, scorer: scorer}
}

// Retrieve scores every chunk of every requested law against the query and
// returns at most topK chunks. Each law first receives a quota of
// max(1, topK/len(laws)) slots; remaining slots are backfilled from the
// global pool of leftovers, highest score first. A law with no available
// chunks contributes nothing and its quota falls through to the pool.
func (e *Engine) Retrieve(ctx context.Context, query string, laws []corpus.LawID, topK int) ([]ScoredChunk, error) {
	if topK < 1 {
		topK = 1
	}
	if len(laws) == 0 {
		laws = corpus.Laws
	}

	perLaw := make(map[corpus.LawID][]ScoredChunk, len(laws))
	for _, law := range laws {
		chunks := e.chunks.Load(law)
		if len(chunks) == 0 {
			continue
		}
		scores, err := e.score(ctx, query, chunks)
		if err != nil {
			return nil, err
		}
		scored := make([]ScoredChunk, len(chunks))
		for i, ch := range chunks {
			scored[i] = ScoredChunk{Chunk: ch, Score: scores[i]}
		}
		// Descending by score; ties keep original corpus order.
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})
		perLaw[law] = scored
	}

	nPer := topK / len(laws)
	if nPer < 1 {
		nPer = 1
	}

	var selected []ScoredChunk
	for _, law := range laws {
		scored := perLaw[law]
		if len(scored) > nPer {
			scored = scored[:nPer]
		}
		selected = append(selected, scored...)
	}

	// Backfill remaining slots from the leftover pool across all laws.
	if remaining := topK - len(selected); remaining > 0 {
		var pool []ScoredChunk
		for _, law := range laws {
			if scored := perLaw[law]; len(scored) > nPer {
				pool = append(pool, scored[nPer:]...)
			}
		}
		sort.SliceStable(pool, func(i, j int) bool {
			return pool[i].Score > pool[j].Score
		})
		if len(pool) > remaining {
			pool = pool[:remaining]
		}
		selected = append(selected, pool...)
	}

	if len(selected) > topK {
		selected = selected[:topK]
	}
	return selected, nil
}

// score applies the configured scorer, falling back to lexical scoring if
// it fails. A degraded similarity function changes ranking quality, never
// the balancing algorithm, so retrieval stays best-effort.
func (e *Engine) score(ctx context.Context, query string, chunks []corpus.Chunk) ([]float64, error) {
	scores, err := e.scorer.Score(ctx, query, chunks)
	if err == nil {
		return scores, nil
	}
	if _, isLexical := e.scorer.(LexicalScorer); isLexical {
		return nil, err
	}
	slog.Warn("retrieval: scorer failed, falling back to lexical", "error", err)
	return LexicalScorer{}.Score(ctx, query, chunks)
}

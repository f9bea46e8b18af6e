// Package chunker splits raw subject text into token-bounded segments and
// extracts law-specific signal sentences that must survive downstream
// truncation.
package chunker

import (
	"strings"
)

// Config controls the chunking behaviour.
type Config struct {
	MaxTokens     int // Target estimated tokens per chunk.
	OverlapTokens int // Token overlap between consecutive chunks.
	MinTokens     int // Chunks under this size are merged into the running buffer.
}

// Chunker converts subject text into segments sized for retrieval queries
// and assessor evidence.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given configuration.
// Zero-value fields are replaced with sensible defaults.
func New(cfg Config) *Chunker {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 350
	}
	if cfg.OverlapTokens == 0 {
		cfg.OverlapTokens = 60
	}
	if cfg.MinTokens == 0 {
		cfg.MinTokens = 200
	}
	return &Chunker{cfg: cfg}
}

// estimateTokens approximates the token count of text as length/4 characters
// per token, never less than 1.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// Chunk splits text into token-bounded segments. Each segment ends at a
// sentence boundary when one exists within the last 40% of the target
// window, otherwise it hard-cuts at the window edge. A post-pass merges
// segments under MinTokens into the running buffer so no pathologically
// tiny chunk is emitted, except possibly the final one.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	maxC := c.cfg.MaxTokens * 4
	ovlC := c.cfg.OverlapTokens * 4

	var out []string
	i, n := 0, len(text)
	for i < n {
		j := i + maxC
		if j > n {
			j = n
		}
		k := j
		floor := i + int(0.6*float64(maxC))
		for k > floor && k < n && !isSentenceEnd(text[k-1]) {
			k--
		}
		if k <= floor {
			k = j
		}
		chunk := strings.TrimSpace(text[i:k])
		if chunk != "" {
			out = append(out, chunk)
		}
		if k >= n {
			// Final window. Advancing by the clamped step would re-emit
			// the tail shifted by a character when it is shorter than the
			// overlap.
			break
		}
		step := (len(chunk)*4 - ovlC) / 4
		if step < 1 {
			step = 1
		}
		i += step
	}

	// Merge undersized segments into a running buffer.
	var merged []string
	buf := ""
	for _, ch := range out {
		if estimateTokens(ch) < c.cfg.MinTokens {
			buf = strings.TrimSpace(buf + "\n" + ch)
			continue
		}
		if buf != "" {
			merged = append(merged, buf)
			buf = ""
		}
		merged = append(merged, ch)
	}
	if buf != "" {
		merged = append(merged, buf)
	}
	return merged
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// BuildUserText assembles the text fed downstream: signal sentences first,
// so they survive truncation, followed by the chunks, cut at the character
// budget.
func BuildUserText(signals string, chunks []string, budget int) string {
	s := signals + "\n\n" + strings.Join(chunks, "\n\n")
	if budget > 0 && len(s) > budget {
		s = s[:budget]
	}
	return s
}

// Package corpus holds the per-law chunk stores: addressable passages of
// regulatory text loaded from newline-delimited JSON files. Stores are
// read-only at request time and safe to share across concurrent requests.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// LawID identifies one of the supported bodies of regulation.
type LawID string

const (
	GDPR  LawID = "gdpr"
	AIAct LawID = "ai_act"
)

// Laws is the default evaluation order: GDPR first, then the AI Act.
var Laws = []LawID{GDPR, AIAct}

// Display returns the human-readable label used in violation records.
func (l LawID) Display() string {
	if l == AIAct {
		return "AI Act"
	}
	return "GDPR"
}

// Canonical maps a free-form law label onto a LawID. Any label containing
// "gdpr" resolves to GDPR; a label containing both "ai" and "act" resolves
// to the AI Act. Anything else falls back to GDPR, matching the upstream
// contract: assessor-invented source labels must still land in a valid pool.
func Canonical(label string) LawID {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
	if strings.Contains(s, "gdpr") {
		return GDPR
	}
	if strings.Contains(s, "ai") && strings.Contains(s, "act") {
		return AIAct
	}
	return GDPR
}

// Chunk is a single addressable passage of regulatory text.
// Identity is ID, but uniqueness is not guaranteed by the store;
// duplicate IDs are legal and must be tolerated downstream.
type Chunk struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Page   *int   `json:"page,omitempty"` // nil = unknown
	Source LawID  `json:"source"`
}

// PageLabel renders the chunk's page for prompts and citations: the page
// number when known, "?" otherwise.
func (c Chunk) PageLabel() string {
	if c.Page == nil {
		return "?"
	}
	return strconv.Itoa(*c.Page)
}

// Store loads and caches per-law chunk collections from a directory laid
// out as <dir>/<law>/chunks.jsonl.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[LawID][]Chunk
}

// NewStore creates a Store rooted at dir. Nothing is read until Load.
func NewStore(dir string) *Store {
	return &Store{dir: dir, cache: make(map[LawID][]Chunk)}
}

// Load returns all chunks for a law. A missing or unreadable file is
// reported as zero evidence, never as an error: the law's retrieval quota
// silently falls through to the other laws. Results are cached; the
// returned slice must be treated as read-only.
func (s *Store) Load(law LawID) []Chunk {
	s.mu.RLock()
	if chunks, ok := s.cache[law]; ok {
		s.mu.RUnlock()
		return chunks
	}
	s.mu.RUnlock()

	chunks, err := readChunkFile(filepath.Join(s.dir, string(law), "chunks.jsonl"), law)
	if err != nil {
		slog.Warn("corpus: chunk store unavailable", "law", law, "error", err)
		chunks = nil
	}

	s.mu.Lock()
	s.cache[law] = chunks
	s.mu.Unlock()
	return chunks
}

// chunkRecord mirrors the on-disk line format. Older index builds used
// "chunk" for the text field and "page_num" or "p" for the page.
type chunkRecord struct {
	ID      string          `json:"id"`
	Text    string          `json:"text"`
	Chunk   string          `json:"chunk"`
	Page    json.RawMessage `json:"page"`
	PageNum json.RawMessage `json:"page_num"`
	P       json.RawMessage `json:"p"`
}

func readChunkFile(path string, law LawID) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Chunk
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			slog.Warn("corpus: skipping malformed line", "law", law, "line", line, "error", err)
			continue
		}
		page := parsePage(rec.Page, rec.PageNum, rec.P)
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("%s:%s", law, pageOrQuestion(page))
		}
		text := rec.Text
		if text == "" {
			text = rec.Chunk
		}
		out = append(out, Chunk{ID: id, Text: text, Page: page, Source: law})
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, nil
}

// parsePage takes the first present page field and coerces it to an int.
// Malformed values degrade to unknown rather than erroring.
func parsePage(fields ...json.RawMessage) *int {
	for _, f := range fields {
		if len(f) == 0 || string(f) == "null" {
			continue
		}
		var n int
		if err := json.Unmarshal(f, &n); err == nil {
			return &n
		}
		var s string
		if err := json.Unmarshal(f, &s); err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				return &n
			}
		}
		return nil
	}
	return nil
}

func pageOrQuestion(p *int) string {
	if p == nil {
		return "?"
	}
	return strconv.Itoa(*p)
}

package lawlens

import (
	"os"
	"path/filepath"

	"lawlens/chunker"
	"lawlens/llm"
)

// Config holds all configuration for the analysis engine.
type Config struct {
	// CorpusDir is the directory holding one subdirectory per law, each
	// with a chunks.jsonl collection. Defaults to "lawbase".
	CorpusDir string `json:"corpus_dir"`

	// IndexPath is the full path to the embedding index database. If
	// empty, defaults to <IndexName>.db under ~/.lawlens/ (or the working
	// directory, see StorageDir). Only used when Embedding is configured.
	IndexPath string `json:"index_path"`

	// IndexName names the index database when IndexPath is empty.
	// Defaults to "lawlens".
	IndexName string `json:"index_name"`

	// StorageDir controls where the index is created when IndexPath is
	// not set: "home" (default) uses ~/.lawlens/, "local" the working
	// directory.
	StorageDir string `json:"storage_dir"`

	// Chat is the assessor model endpoint. Required.
	Chat llm.Config `json:"chat"`

	// Embedding is the embedding model endpoint for semantic retrieval.
	// Leave the provider empty to fall back to lexical scoring.
	Embedding llm.Config `json:"embedding"`

	// TopK is the default evidence budget per request. Defaults to 12.
	TopK int `json:"top_k"`

	// MaxCitations caps the report citation list when positive.
	MaxCitations int `json:"max_citations"`

	// Chunking parameters for document mode.
	Chunking chunker.Config `json:"chunking"`

	// UserTextCap bounds the assembled policy text in characters.
	// Defaults to 16000.
	UserTextCap int `json:"user_text_cap"`
}

// DefaultConfig returns a Config with the standard defaults: OpenAI
// assessor, lexical retrieval, corpus in ./lawbase.
func DefaultConfig() Config {
	return Config{
		CorpusDir: "lawbase",
		IndexName: "lawlens",
		Chat: llm.Config{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		TopK: 12,
		Chunking: chunker.Config{
			MaxTokens:     350,
			OverlapTokens: 60,
			MinTokens:     200,
		},
		UserTextCap: 16000,
	}
}

// resolveIndexPath computes the final index path from config fields.
func (c *Config) resolveIndexPath() string {
	if c.IndexPath != "" {
		return c.IndexPath
	}
	name := c.IndexName
	if name == "" {
		name = "lawlens"
	}
	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".lawlens", name+".db")
	}
}

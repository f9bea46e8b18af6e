// Package store persists chunk embeddings for the semantic retrieval
// scorer. The index is a cache: retrieval semantics are identical whether
// embeddings are served from here or freshly computed.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

const schema = `
CREATE TABLE IF NOT EXISTS chunk_embeddings (
	law          TEXT NOT NULL,
	chunk_id     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	embedding    BLOB NOT NULL,
	created_at   TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (law, chunk_id, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_chunk_embeddings_law ON chunk_embeddings(law);
`

// Index is a persisted per-law embedding cache backed by SQLite with the
// sqlite-vec extension loaded. It is constructed once per process and
// shared across requests; all methods are safe for concurrent use.
type Index struct {
	db *sql.DB
}

// Open opens (or creates) the index database at the given path.
func Open(dbPath string) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging index database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialising index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Upsert stores the embedding for a chunk, keyed by law, chunk id, and
// content hash so re-indexing only happens when the text changes.
func (ix *Index) Upsert(ctx context.Context, law, chunkID, contentHash string, embedding []float32) error {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO chunk_embeddings (law, chunk_id, content_hash, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(law, chunk_id, content_hash) DO UPDATE SET
			embedding = excluded.embedding
	`, law, chunkID, contentHash, serializeFloat32(embedding))
	return err
}

// Has reports whether an embedding is cached for the chunk.
func (ix *Index) Has(ctx context.Context, law, chunkID, contentHash string) (bool, error) {
	var one int
	err := ix.db.QueryRowContext(ctx, `
		SELECT 1 FROM chunk_embeddings
		WHERE law = ? AND chunk_id = ? AND content_hash = ?
	`, law, chunkID, contentHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Score returns the cosine similarity between the query embedding and the
// cached chunk embedding, computed by sqlite-vec. The second return value
// is false when the chunk is not in the cache.
func (ix *Index) Score(ctx context.Context, law, chunkID, contentHash string, query []float32) (float64, bool, error) {
	var distance float64
	err := ix.db.QueryRowContext(ctx, `
		SELECT vec_distance_cosine(embedding, ?)
		FROM chunk_embeddings
		WHERE law = ? AND chunk_id = ? AND content_hash = ?
	`, serializeFloat32(query), law, chunkID, contentHash).Scan(&distance)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	// Cosine distance -> similarity.
	return 1.0 - distance, true, nil
}

// ContentHash returns the SHA-256 hex digest of text, the cache key
// component that invalidates embeddings when chunk text changes.
func ContentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

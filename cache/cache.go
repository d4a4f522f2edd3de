// Package cache persists compiled bytecode keyed by source content, so
// repeated runs of an unchanged script skip the compiler.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Cache is a sqlite-backed store of CBOR-encoded function graphs. Each entry
// records the build id that produced it, so a cache can be traced back to a
// toolchain run.
type Cache struct {
	db      *sql.DB
	buildID string
}

const schema = `
CREATE TABLE IF NOT EXISTS scripts (
	source_hash TEXT PRIMARY KEY,
	build_id    TEXT NOT NULL,
	compiled    BLOB NOT NULL,
	created_at  TEXT NOT NULL
);
`

// Open creates or opens the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Cache{db: db, buildID: uuid.NewString()}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error { return c.db.Close() }

// HashSource returns the cache key for a source unit.
func HashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Get returns the compiled blob for a source hash, with ok false on miss.
func (c *Cache) Get(sourceHash string) ([]byte, bool, error) {
	var blob []byte
	err := c.db.QueryRow(
		`SELECT compiled FROM scripts WHERE source_hash = ?`, sourceHash,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return blob, true, nil
}

// Put stores a compiled blob under a source hash, replacing any previous
// entry.
func (c *Cache) Put(sourceHash string, compiled []byte) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO scripts (source_hash, build_id, compiled, created_at)
		 VALUES (?, ?, ?, ?)`,
		sourceHash, c.buildID, compiled, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// BuildID identifies this process's cache writes.
func (c *Cache) BuildID() string { return c.buildID }

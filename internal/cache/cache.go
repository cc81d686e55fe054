// Package cache is the derived SQLite index over the CRDT store: fulltext
// search, relation lookups, task ordering and embedding vectors. It can be
// deleted and rebuilt at any time; the CRDT document stays the source of
// truth.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is swappable in tests to exercise open failures.
var openDB = sql.Open

// Cache wraps the sqlite handle. Safe for concurrent readers; writes are
// serialized by the caller.
type Cache struct {
	db   *sql.DB
	path string
}

// Open creates or opens the cache database and runs migrations.
func Open(path string) (*Cache, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	c := &Cache{db: db, path: path}
	if err := c.configure(); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := c.db.Exec(p); err != nil {
			return fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return nil
}

func (c *Cache) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS entities (
    id              TEXT PRIMARY KEY,
    type            TEXT NOT NULL,
    title           TEXT NOT NULL,
    content         TEXT NOT NULL DEFAULT '',
    tags            TEXT NOT NULL DEFAULT '',
    status          TEXT,
    priority        TEXT,
    due_date        TEXT,
    assignee        TEXT,
    created_by      TEXT,
    sequence_number INTEGER NOT NULL,
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,
    extra           TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
CREATE INDEX IF NOT EXISTS idx_entities_type_status ON entities(type, status);
CREATE INDEX IF NOT EXISTS idx_entities_updated ON entities(updated_at);

CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
    id UNINDEXED,
    type UNINDEXED,
    title,
    content,
    tags,
    extra_text
);

CREATE TABLE IF NOT EXISTS relations (
    source_id     TEXT NOT NULL,
    target_id     TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    source_type   TEXT NOT NULL,
    target_type   TEXT NOT NULL,
    properties    TEXT NOT NULL DEFAULT '{}',
    created_at    TEXT NOT NULL,
    PRIMARY KEY (source_id, relation_type, target_id)
);
CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_id);

CREATE TABLE IF NOT EXISTS embeddings (
    entity_id   TEXT PRIMARY KEY,
    entity_type TEXT NOT NULL,
    vector      BLOB NOT NULL,
    text_hash   TEXT NOT NULL,
    model       TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    version_hash TEXT NOT NULL,
    synced_at    TEXT NOT NULL
);
`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("migrating cache schema: %w", err)
	}
	return nil
}

// SyncedVersion returns the CRDT version the cache was last built from, ""
// when never synced.
func (c *Cache) SyncedVersion() (string, error) {
	var v string
	err := c.db.QueryRow("SELECT version_hash FROM sync_state WHERE id = 1").Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync state: %w", err)
	}
	return v, nil
}

// NeedsSync reports whether the cache lags the given document version.
func (c *Cache) NeedsSync(version string) (bool, error) {
	v, err := c.SyncedVersion()
	if err != nil {
		return false, err
	}
	return v != version, nil
}

// Stats summarizes cache contents for the stats tool and resource.
type Stats struct {
	Entities   map[string]int `json:"entities"`
	Relations  int            `json:"relations"`
	Embeddings int            `json:"embeddings"`
	DBSize     int64          `json:"db_size_bytes"`
	Version    string         `json:"version_hash"`
	SyncedAt   string         `json:"synced_at,omitempty"`
}

func (c *Cache) Stats() (*Stats, error) {
	st := &Stats{Entities: map[string]int{}}
	rows, err := c.db.Query("SELECT type, COUNT(*) FROM entities GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("counting entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scanning entity count: %w", err)
		}
		st.Entities[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM relations").Scan(&st.Relations); err != nil {
		return nil, fmt.Errorf("counting relations: %w", err)
	}
	if err := c.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&st.Embeddings); err != nil {
		return nil, fmt.Errorf("counting embeddings: %w", err)
	}
	var syncedAt sql.NullString
	var version sql.NullString
	err = c.db.QueryRow("SELECT version_hash, synced_at FROM sync_state WHERE id = 1").Scan(&version, &syncedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading sync state: %w", err)
	}
	st.Version = version.String
	st.SyncedAt = syncedAt.String
	if info, err := os.Stat(c.path); err == nil {
		st.DBSize = info.Size()
	}
	return st, nil
}

// now returns the UTC timestamp format used throughout the cache.
func now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

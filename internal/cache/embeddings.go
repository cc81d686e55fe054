package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/medullahq/medulla/internal/entity"
)

// EmbeddableText is the text an entity is embedded from: title, content and
// the type-specific extra text.
func EmbeddableText(e entity.Entity) string {
	b := e.Meta()
	parts := []string{b.Title}
	if b.Content != "" {
		parts = append(parts, b.Content)
	}
	if extra := ExtraText(e); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, "\n")
}

// TextHash fingerprints embeddable text so unchanged entities skip
// re-embedding.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbeddingRow is a stored vector with its provenance.
type EmbeddingRow struct {
	EntityID   string
	EntityType string
	Vector     []float32
	TextHash   string
	Model      string
}

// PutEmbedding upserts a vector for an entity.
func (c *Cache) PutEmbedding(row *EmbeddingRow) error {
	_, err := c.db.Exec(`
INSERT INTO embeddings (entity_id, entity_type, vector, text_hash, model, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(entity_id) DO UPDATE SET
    entity_type = excluded.entity_type,
    vector = excluded.vector,
    text_hash = excluded.text_hash,
    model = excluded.model,
    updated_at = excluded.updated_at`,
		row.EntityID, row.EntityType, encodeVector(row.Vector), row.TextHash, row.Model, now())
	if err != nil {
		return fmt.Errorf("storing embedding for %s: %w", row.EntityID, err)
	}
	return nil
}

// EmbeddingHash returns the stored text hash for an entity, "" when absent.
func (c *Cache) EmbeddingHash(entityID string) (string, error) {
	var h string
	err := c.db.QueryRow("SELECT text_hash FROM embeddings WHERE entity_id = ?", entityID).Scan(&h)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading embedding hash: %w", err)
	}
	return h, nil
}

// DeleteEmbedding removes a stored vector.
func (c *Cache) DeleteEmbedding(entityID string) error {
	if _, err := c.db.Exec("DELETE FROM embeddings WHERE entity_id = ?", entityID); err != nil {
		return fmt.Errorf("deleting embedding for %s: %w", entityID, err)
	}
	return nil
}

// ListEmbeddings streams all stored vectors, optionally filtered by type.
func (c *Cache) ListEmbeddings(entityType string) ([]*EmbeddingRow, error) {
	query := "SELECT entity_id, entity_type, vector, text_hash, model FROM embeddings"
	var args []any
	if entityType != "" {
		query += " WHERE entity_type = ?"
		args = append(args, entityType)
	}
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings: %w", err)
	}
	defer rows.Close()
	var out []*EmbeddingRow
	for rows.Next() {
		var r EmbeddingRow
		var blob []byte
		if err := rows.Scan(&r.EntityID, &r.EntityType, &blob, &r.TextHash, &r.Model); err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		r.Vector = decodeVector(blob)
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Vectors are stored as little-endian float32, matching the on-disk format
// other medulla implementations use.

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

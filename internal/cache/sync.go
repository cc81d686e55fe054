package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medullahq/medulla/internal/entity"
)

// Source is the slice of the CRDT store the cache indexes from.
type Source interface {
	ListAll() ([]entity.Entity, error)
	ListRelations() ([]*entity.Relation, error)
	VersionHash() string
}

// SyncFull rebuilds every derived table from the source document and records
// its version. Embedding vectors survive when the entity's embeddable text
// is unchanged; rows for deleted entities are pruned.
func (c *Cache) SyncFull(src Source) error {
	entities, err := src.ListAll()
	if err != nil {
		return fmt.Errorf("listing entities: %w", err)
	}
	relations, err := src.ListRelations()
	if err != nil {
		return fmt.Errorf("listing relations: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("starting sync transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM entities",
		"DELETE FROM entities_fts",
		"DELETE FROM relations",
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("clearing derived tables: %w", err)
		}
	}
	for _, e := range entities {
		if err := insertEntity(tx, e); err != nil {
			return err
		}
	}
	for _, r := range relations {
		if err := insertRelation(tx, r); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"DELETE FROM embeddings WHERE entity_id NOT IN (SELECT id FROM entities)"); err != nil {
		return fmt.Errorf("pruning embeddings: %w", err)
	}
	if _, err := tx.Exec(`
INSERT INTO sync_state (id, version_hash, synced_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET version_hash = excluded.version_hash, synced_at = excluded.synced_at`,
		src.VersionHash(), now()); err != nil {
		return fmt.Errorf("recording sync state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sync: %w", err)
	}
	return nil
}

// SyncIfStale runs SyncFull only when the recorded version differs.
func (c *Cache) SyncIfStale(src Source) (bool, error) {
	stale, err := c.NeedsSync(src.VersionHash())
	if err != nil || !stale {
		return false, err
	}
	if err := c.SyncFull(src); err != nil {
		return false, err
	}
	return true, nil
}

func insertEntity(tx *sql.Tx, e entity.Entity) error {
	b := e.Meta()
	var status, priority, dueDate, assignee string
	extra := map[string]any{}
	switch v := e.(type) {
	case *entity.Decision:
		status = string(v.Status)
		extra["context"] = v.Context
		extra["consequences"] = v.Consequences
		extra["superseded_by"] = v.SupersededBy
	case *entity.Task:
		status = string(v.Status)
		priority = string(v.Priority)
		dueDate = v.DueDate
		assignee = v.Assignee
	case *entity.Note:
		extra["note_type"] = v.NoteType
	case *entity.Prompt:
		extra["template"] = v.Template
		extra["output_schema"] = v.OutputSchema
	case *entity.Component:
		status = string(v.Status)
		extra["path"] = v.Path
	case *entity.Link:
		extra["url"] = v.URL
		extra["link_type"] = v.LinkType
	}
	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("encoding extra for %s: %w", b.ID, err)
	}
	_, err = tx.Exec(`
INSERT INTO entities (id, type, title, content, tags, status, priority, due_date,
    assignee, created_by, sequence_number, created_at, updated_at, extra)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, string(e.EntityType()), b.Title, b.Content, strings.Join(b.Tags, " "),
		nullable(status), nullable(priority), nullable(dueDate), nullable(assignee),
		nullable(b.CreatedBy), b.SequenceNumber,
		b.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		b.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
		string(extraJSON))
	if err != nil {
		return fmt.Errorf("indexing entity %s: %w", b.ID, err)
	}
	_, err = tx.Exec(`
INSERT INTO entities_fts (id, type, title, content, tags, extra_text)
VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, string(e.EntityType()), b.Title, b.Content,
		strings.Join(b.Tags, " "), ExtraText(e))
	if err != nil {
		return fmt.Errorf("indexing fts for %s: %w", b.ID, err)
	}
	return nil
}

func insertRelation(tx *sql.Tx, r *entity.Relation) error {
	props, err := json.Marshal(r.Properties)
	if err != nil {
		return fmt.Errorf("encoding relation properties: %w", err)
	}
	if r.Properties == nil {
		props = []byte("{}")
	}
	_, err = tx.Exec(`
INSERT INTO relations (source_id, target_id, relation_type, source_type, target_type, properties, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.SourceID, r.TargetID, string(r.Type), string(r.SourceType), string(r.TargetType),
		string(props), r.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("indexing relation %s: %w", r.CompositeKey(), err)
	}
	return nil
}

// ExtraText is the type-specific text that participates in fulltext and
// semantic indexing beyond title and content.
func ExtraText(e entity.Entity) string {
	var parts []string
	switch v := e.(type) {
	case *entity.Decision:
		parts = append(parts, v.Context)
		parts = append(parts, v.Consequences...)
	case *entity.Task:
		parts = append(parts, v.Assignee)
	case *entity.Note:
		parts = append(parts, v.NoteType)
	case *entity.Prompt:
		parts = append(parts, v.Template)
	case *entity.Component:
		parts = append(parts, v.Path)
	case *entity.Link:
		parts = append(parts, v.URL, v.LinkType)
	}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "\n")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Edge is one relation row as stored in the cache.
type Edge struct {
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Type       string            `json:"relation_type"`
	SourceType string            `json:"source_type"`
	TargetType string            `json:"target_type"`
	Properties map[string]string `json:"properties,omitempty"`
}

// EntityRef is a lightweight entity pointer used in graph results.
type EntityRef struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	SequenceNumber int    `json:"sequence_number"`
}

// Direction selects which edges of an entity to follow.
type Direction string

const (
	DirOut  Direction = "out"
	DirIn   Direction = "in"
	DirBoth Direction = "both"
)

// ParseDirection parses a direction name, defaulting to both.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both":
		return DirBoth, nil
	case "out", "outgoing", "from":
		return DirOut, nil
	case "in", "incoming", "to":
		return DirIn, nil
	}
	return "", fmt.Errorf("invalid direction %q", s)
}

// liveEdges restricts relation rows to those whose endpoints both still
// exist. Dangling edges survive in the document for merge history but never
// surface in query results.
const liveEdges = `
FROM relations r
JOIN entities se ON se.id = r.source_id
JOIN entities te ON te.id = r.target_id`

const edgeColumns = `r.source_id, r.target_id, r.relation_type, r.source_type, r.target_type, r.properties`

// Relations returns the edges touching id in the given direction, optionally
// restricted to relation types.
func (c *Cache) Relations(id string, dir Direction, types []string) ([]*Edge, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT " + edgeColumns + liveEdges + "\nWHERE ")
	switch dir {
	case DirOut:
		sb.WriteString("r.source_id = ?")
		args = append(args, id)
	case DirIn:
		sb.WriteString("r.target_id = ?")
		args = append(args, id)
	default:
		sb.WriteString("(r.source_id = ? OR r.target_id = ?)")
		args = append(args, id, id)
	}
	if len(types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
		fmt.Fprintf(&sb, " AND r.relation_type IN (%s)", placeholders)
		for _, t := range types {
			args = append(args, t)
		}
	}
	sb.WriteString(" ORDER BY r.source_id, r.relation_type, r.target_id")
	return c.queryEdges(sb.String(), args...)
}

// AllEdges returns every live relation, for path traversal.
func (c *Cache) AllEdges() ([]*Edge, error) {
	return c.queryEdges("SELECT " + edgeColumns + liveEdges +
		"\nORDER BY r.source_id, r.relation_type, r.target_id")
}

// Orphans returns entities with no live relations in either direction,
// optionally restricted to one type. An edge whose other endpoint is gone
// does not count as a connection.
func (c *Cache) Orphans(limit int, typ string) ([]*EntityRef, error) {
	var sb strings.Builder
	var args []any
	sb.WriteString(`
SELECT id, type, title, sequence_number FROM entities e
WHERE NOT EXISTS (
    SELECT 1 FROM relations r
    WHERE (r.source_id = e.id AND r.target_id IN (SELECT id FROM entities))
       OR (r.target_id = e.id AND r.source_id IN (SELECT id FROM entities))
)`)
	if typ != "" {
		sb.WriteString(" AND e.type = ?")
		args = append(args, typ)
	}
	sb.WriteString(" ORDER BY e.type, e.sequence_number LIMIT ?")
	args = append(args, ClampLimit(limit))
	rows, err := c.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying orphans: %w", err)
	}
	defer rows.Close()
	return scanRefs(rows)
}

// Entity returns the cached row for id, nil when not indexed.
func (c *Cache) Entity(id string) (*EntityRef, error) {
	rows, err := c.db.Query(
		"SELECT id, type, title, sequence_number FROM entities WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("querying entity: %w", err)
	}
	defer rows.Close()
	refs, err := scanRefs(rows)
	if err != nil || len(refs) == 0 {
		return nil, err
	}
	return refs[0], nil
}

func (c *Cache) queryEdges(query string, args ...any) ([]*Edge, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()
	var out []*Edge
	for rows.Next() {
		var e Edge
		var props string
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.Type, &e.SourceType, &e.TargetType, &props); err != nil {
			return nil, fmt.Errorf("scanning relation row: %w", err)
		}
		if props != "" && props != "{}" {
			if err := json.Unmarshal([]byte(props), &e.Properties); err != nil {
				return nil, fmt.Errorf("decoding relation properties: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func scanRefs(rows *sql.Rows) ([]*EntityRef, error) {
	var out []*EntityRef
	for rows.Next() {
		var r EntityRef
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.SequenceNumber); err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

package cache

import (
	"fmt"
	"strings"
)

// SearchFilter narrows fulltext matches by entity metadata.
type SearchFilter struct {
	Types         []string
	Status        string
	Tags          []string
	CreatedAfter  string // YYYY-MM-DD, exclusive
	CreatedBefore string // YYYY-MM-DD, exclusive
}

// SearchResult is one fulltext hit. Score is the bm25 rank, lower is better.
type SearchResult struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// Search runs an FTS5 match over titles, content, tags and type-specific
// text. An empty query with filters degrades to a metadata-only scan.
func (c *Cache) Search(query string, filter SearchFilter, limit int) ([]*SearchResult, error) {
	limit = ClampLimit(limit)
	var (
		sb   strings.Builder
		args []any
	)
	match := sanitizeFTS(query)
	if match != "" {
		sb.WriteString(`
SELECT f.id, f.type, f.title, snippet(entities_fts, -1, '[', ']', '…', 12), bm25(entities_fts)
FROM entities_fts f
JOIN entities e ON e.id = f.id
WHERE entities_fts MATCH ?`)
		args = append(args, match)
	} else {
		sb.WriteString(`
SELECT e.id, e.type, e.title, '', 0.0
FROM entities e
WHERE 1 = 1`)
	}
	appendFilterSQL(&sb, &args, filter)
	if match != "" {
		sb.WriteString(" ORDER BY bm25(entities_fts)")
	} else {
		sb.WriteString(" ORDER BY e.updated_at DESC")
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := c.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("running search: %w", err)
	}
	defer rows.Close()
	var out []*SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.Snippet, &r.Score); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func appendFilterSQL(sb *strings.Builder, args *[]any, filter SearchFilter) {
	if len(filter.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Types)), ",")
		fmt.Fprintf(sb, " AND e.type IN (%s)", placeholders)
		for _, t := range filter.Types {
			*args = append(*args, t)
		}
	}
	if filter.Status != "" {
		sb.WriteString(" AND e.status = ?")
		*args = append(*args, filter.Status)
	}
	for _, tag := range filter.Tags {
		sb.WriteString(" AND instr(' ' || e.tags || ' ', ?) > 0")
		*args = append(*args, " "+tag+" ")
	}
	if filter.CreatedAfter != "" {
		sb.WriteString(" AND substr(e.created_at, 1, 10) > ?")
		*args = append(*args, filter.CreatedAfter)
	}
	if filter.CreatedBefore != "" {
		sb.WriteString(" AND substr(e.created_at, 1, 10) < ?")
		*args = append(*args, filter.CreatedBefore)
	}
}

// IDsMatching returns the ids of all entities passing the filter, for
// intersecting with semantic hits.
func (c *Cache) IDsMatching(filter SearchFilter) (map[string]struct{}, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString("SELECT e.id FROM entities e WHERE 1 = 1")
	appendFilterSQL(&sb, &args, filter)
	rows, err := c.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying filter ids: %w", err)
	}
	defer rows.Close()
	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// sanitizeFTS turns free text into a safe FTS5 query: each word quoted,
// joined implicitly as AND. Returns "" for no usable terms.
func sanitizeFTS(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}

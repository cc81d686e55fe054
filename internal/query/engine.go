package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/embeddings"
	"github.com/medullahq/medulla/internal/merr"
)

// Mode selects the search strategy.
type Mode string

const (
	ModeFulltext Mode = "fulltext"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// MinSimilarity is the cosine floor below which semantic hits are dropped.
const MinSimilarity = 0.3

// ParseMode parses a search mode name, defaulting to fulltext.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fulltext", "text":
		return ModeFulltext, nil
	case "semantic":
		return ModeSemantic, nil
	case "hybrid":
		return ModeHybrid, nil
	}
	return "", merr.Validation("mode", "invalid search mode: %q", s)
}

// Result is a unified search hit. Score is normalized so higher is better
// across modes.
type Result struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"` // "fulltext" or "semantic"
}

// Engine answers search and graph queries. The embedder may be nil; an
// explicit semantic search then fails, and hybrid degrades to fulltext.
type Engine struct {
	cache    *cache.Cache
	embedder embeddings.Embedder
}

func New(c *cache.Cache, emb embeddings.Embedder) *Engine {
	return &Engine{cache: c, embedder: emb}
}

// Search parses inline filters from raw and runs the requested mode. An
// explicit semantic search without a configured embedder is an error;
// hybrid degrades to fulltext since its semantic half is best-effort.
func (e *Engine) Search(ctx context.Context, raw string, mode Mode, limit int) ([]*Result, error) {
	text, filter, err := ParseQuery(raw)
	if err != nil {
		return nil, err
	}
	limit = cache.ClampLimit(limit)
	if e.embedder == nil {
		switch mode {
		case ModeSemantic:
			return nil, merr.Validation("mode",
				"semantic search unavailable: no embedding provider configured")
		case ModeHybrid:
			mode = ModeFulltext
		}
	}
	switch mode {
	case ModeSemantic:
		return e.semantic(ctx, text, filter, limit)
	case ModeHybrid:
		full, err := e.fulltext(text, filter, limit)
		if err != nil {
			return nil, err
		}
		sem, err := e.semantic(ctx, text, filter, limit)
		if err != nil {
			// Semantic half is best-effort in hybrid mode.
			return full, nil
		}
		return mergeResults(full, sem, limit), nil
	default:
		return e.fulltext(text, filter, limit)
	}
}

func (e *Engine) fulltext(text string, filter cache.SearchFilter, limit int) ([]*Result, error) {
	hits, err := e.cache.Search(text, filter, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, len(hits))
	for i, h := range hits {
		out[i] = &Result{
			ID:      h.ID,
			Type:    h.Type,
			Title:   h.Title,
			Snippet: h.Snippet,
			// bm25 is lower-is-better and non-positive for matches.
			Score:  -h.Score,
			Source: "fulltext",
		}
	}
	return out, nil
}

func (e *Engine) semantic(ctx context.Context, text string, filter cache.SearchFilter, limit int) ([]*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, merr.Validation("query", "semantic search needs a query")
	}
	queryVec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	var allowed map[string]struct{}
	if filterIsSet(filter) {
		allowed, err = e.cache.IDsMatching(filter)
		if err != nil {
			return nil, err
		}
	}
	rows, err := e.cache.ListEmbeddings("")
	if err != nil {
		return nil, err
	}
	var out []*Result
	for _, row := range rows {
		if allowed != nil {
			if _, ok := allowed[row.EntityID]; !ok {
				continue
			}
		}
		score := embeddings.Cosine(queryVec, row.Vector)
		if score < MinSimilarity {
			continue
		}
		ref, err := e.cache.Entity(row.EntityID)
		if err != nil {
			return nil, err
		}
		if ref == nil {
			continue
		}
		out = append(out, &Result{
			ID:     ref.ID,
			Type:   ref.Type,
			Title:  ref.Title,
			Score:  score,
			Source: "semantic",
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mergeResults unions hits by id, preferring the semantic score when both
// modes matched.
func mergeResults(full, sem []*Result, limit int) []*Result {
	byID := make(map[string]*Result, len(full)+len(sem))
	order := make([]string, 0, len(full)+len(sem))
	for _, r := range full {
		byID[r.ID] = r
		order = append(order, r.ID)
	}
	for _, r := range sem {
		if _, ok := byID[r.ID]; !ok {
			order = append(order, r.ID)
		}
		byID[r.ID] = r
	}
	out := make([]*Result, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source == "semantic"
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func filterIsSet(f cache.SearchFilter) bool {
	return len(f.Types) > 0 || f.Status != "" || len(f.Tags) > 0 ||
		f.CreatedAfter != "" || f.CreatedBefore != ""
}

// Package query layers search and graph operations over the derived cache,
// with optional semantic scoring from the embeddings client.
package query

import (
	"strings"

	"github.com/medullahq/medulla/internal/cache"
	"github.com/medullahq/medulla/internal/entity"
)

// ParseQuery splits inline filters out of a raw query string. Supported
// prefixes: type:, status:, tag: (repeatable), created:>YYYY-MM-DD,
// created:<YYYY-MM-DD. The remaining words form the fulltext query.
func ParseQuery(raw string) (string, cache.SearchFilter, error) {
	var (
		filter cache.SearchFilter
		terms  []string
	)
	for _, token := range strings.Fields(raw) {
		switch {
		case strings.HasPrefix(token, "type:"):
			t, err := entity.ParseType(strings.TrimPrefix(token, "type:"))
			if err != nil {
				return "", filter, err
			}
			filter.Types = append(filter.Types, string(t))
		case strings.HasPrefix(token, "status:"):
			filter.Status = strings.ToLower(strings.TrimPrefix(token, "status:"))
		case strings.HasPrefix(token, "tag:"):
			if tag := strings.TrimPrefix(token, "tag:"); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		case strings.HasPrefix(token, "created:>"):
			filter.CreatedAfter = strings.TrimPrefix(token, "created:>")
		case strings.HasPrefix(token, "created:<"):
			filter.CreatedBefore = strings.TrimPrefix(token, "created:<")
		default:
			terms = append(terms, token)
		}
	}
	return strings.Join(terms, " "), filter, nil
}

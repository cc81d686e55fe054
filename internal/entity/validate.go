package entity

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/medullahq/medulla/internal/merr"
)

// Size limits, in bytes. These are part of the on-the-wire contract and must
// not change without a schema version bump.
const (
	MaxTitleLength      = 500
	MaxContentSize      = 102_400
	MaxTagLength        = 100
	MaxTagsCount        = 50
	MaxContextSize      = 51_200
	MaxConsequenceSize  = 1024
	MaxTemplateSize     = 51_200
	MaxOutputSchemaSize = 10_240
	MaxURLSize          = 2048
	MinIDPrefixLength   = 4
)

// ValidateTitle checks a trimmed title: required, at most MaxTitleLength
// bytes.
func ValidateTitle(title string) error {
	if title == "" {
		return merr.Validation("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return merr.Validation("title", "title exceeds %d bytes", MaxTitleLength)
	}
	return nil
}

// NormalizeTags trims, drops empties, rejects oversized tags and deduplicates
// preserving first occurrence.
func NormalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > MaxTagLength {
			return nil, merr.Validation("tags", "tag %q exceeds %d bytes", tag, MaxTagLength)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTagsCount {
		return nil, merr.Validation("tags", "too many tags: %d (max %d)", len(out), MaxTagsCount)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ValidateDate checks the strict YYYY-MM-DD form.
func ValidateDate(field, s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return merr.Validation(field, "%s must be YYYY-MM-DD, got %q", field, s)
	}
	return nil
}

// ValidateURL checks an http(s) URL within the size limit.
func ValidateURL(raw string) error {
	if raw == "" {
		return merr.Validation("url", "url is required")
	}
	if len(raw) > MaxURLSize {
		return merr.Validation("url", "url exceeds %d bytes", MaxURLSize)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return merr.Validation("url", "invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return merr.Validation("url", "url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// ValidateJSONSchema checks that s parses as JSON and fits the size limit.
func ValidateJSONSchema(s string) error {
	if len(s) > MaxOutputSchemaSize {
		return merr.Validation("output_schema", "output_schema exceeds %d bytes", MaxOutputSchemaSize)
	}
	if !json.Valid([]byte(s)) {
		return merr.Validation("output_schema", "output_schema is not valid JSON")
	}
	return nil
}

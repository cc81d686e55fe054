package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/automerge/automerge-go"

	"github.com/medullahq/medulla/internal/entity"
	"github.com/medullahq/medulla/internal/merr"
)

// SchemaFileName is the human-readable schema descriptor written at init.
const SchemaFileName = "schema.json"

type schemaFile struct {
	SchemaVersion int            `json:"schema_version"`
	EntityTypes   []string       `json:"entity_types"`
	RelationTypes []string       `json:"relation_types"`
	Limits        map[string]int `json:"limits"`
}

// SchemaJSON renders the schema descriptor served by the schema resource.
func SchemaJSON() ([]byte, error) {
	types := make([]string, len(entity.Types))
	for i, t := range entity.Types {
		types[i] = string(t)
	}
	rels := make([]string, len(entity.RelationTypes))
	for i, r := range entity.RelationTypes {
		rels[i] = string(r)
	}
	sf := schemaFile{
		SchemaVersion: schemaVersion,
		EntityTypes:   types,
		RelationTypes: rels,
		Limits: map[string]int{
			"max_title_length":       entity.MaxTitleLength,
			"max_content_size":       entity.MaxContentSize,
			"max_tag_length":         entity.MaxTagLength,
			"max_tags_count":         entity.MaxTagsCount,
			"max_context_size":       entity.MaxContextSize,
			"max_consequence_size":   entity.MaxConsequenceSize,
			"max_template_size":      entity.MaxTemplateSize,
			"max_output_schema_size": entity.MaxOutputSchemaSize,
			"max_url_size":           entity.MaxURLSize,
			"min_id_prefix_length":   entity.MinIDPrefixLength,
		},
	}
	return json.MarshalIndent(sf, "", "  ")
}

func writeSchemaFile(dir string) error {
	raw, err := SchemaJSON()
	if err != nil {
		return fmt.Errorf("rendering schema: %w", err)
	}
	path := filepath.Join(dir, SchemaFileName)
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", SchemaFileName, err)
	}
	return nil
}

// Reload discards in-memory state and re-reads the document from disk. Used
// to roll back a partially applied batch.
func (s *Store) Reload() error {
	raw, err := os.ReadFile(s.CRDTPath())
	if err != nil {
		return merr.Storage(err)
	}
	doc, err := automerge.Load(raw)
	if err != nil {
		return merr.Storage(err)
	}
	s.doc = doc
	return nil
}

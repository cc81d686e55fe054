package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/medullahq/medulla/internal/merr"
)

// RelationType is the kind of a directed edge between two entities.
type RelationType string

const (
	RelBlocks     RelationType = "blocks"
	RelDependsOn  RelationType = "depends_on"
	RelRelatesTo  RelationType = "relates_to"
	RelSupersedes RelationType = "supersedes"
	RelImplements RelationType = "implements"
	RelReferences RelationType = "references"
	RelDocuments  RelationType = "documents"
	RelBelongsTo  RelationType = "belongs_to"
)

// RelationTypes lists all relation types in canonical order.
var RelationTypes = []RelationType{
	RelBlocks, RelDependsOn, RelRelatesTo, RelSupersedes,
	RelImplements, RelReferences, RelDocuments, RelBelongsTo,
}

// ParseRelationType parses a relation type name, accepting compact aliases
// like "dependson" and "belongsto".
func ParseRelationType(s string) (RelationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocks":
		return RelBlocks, nil
	case "depends_on", "dependson":
		return RelDependsOn, nil
	case "relates_to", "relatesto":
		return RelRelatesTo, nil
	case "supersedes":
		return RelSupersedes, nil
	case "implements":
		return RelImplements, nil
	case "references":
		return RelReferences, nil
	case "documents":
		return RelDocuments, nil
	case "belongs_to", "belongsto":
		return RelBelongsTo, nil
	}
	return "", merr.Validation("relation_type", "invalid relation type: %q", s)
}

// Relation is a directed, typed edge. SourceType and TargetType are
// denormalized for cheap graph filtering.
type Relation struct {
	SourceID   string            `json:"source_id"`
	TargetID   string            `json:"target_id"`
	Type       RelationType      `json:"relation_type"`
	SourceType Type              `json:"source_type"`
	TargetType Type              `json:"target_type"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// CompositeKey identifies a relation: a second add with the same key is an
// upsert, not a duplicate edge.
func (r *Relation) CompositeKey() string {
	return fmt.Sprintf("%s:%s:%s", r.SourceID, r.Type, r.TargetID)
}

func (r *Relation) Validate() error {
	if r.SourceID == "" || r.TargetID == "" {
		return merr.Validation("relation", "source and target are required")
	}
	if r.SourceID == r.TargetID {
		return merr.Validation("relation", "self-relations are not allowed")
	}
	rt, err := ParseRelationType(string(r.Type))
	if err != nil {
		return err
	}
	r.Type = rt
	return nil
}

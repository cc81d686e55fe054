// Package entity defines the typed knowledge model: six entity types sharing
// a common base, plus typed relations between them.
package entity

import (
	"strings"
	"time"

	"github.com/medullahq/medulla/internal/merr"
)

// Type identifies one of the six entity types.
type Type string

const (
	TypeDecision  Type = "decision"
	TypeTask      Type = "task"
	TypeNote      Type = "note"
	TypePrompt    Type = "prompt"
	TypeComponent Type = "component"
	TypeLink      Type = "link"
)

// Types lists all entity types in canonical order.
var Types = []Type{TypeDecision, TypeTask, TypeNote, TypePrompt, TypeComponent, TypeLink}

// ParseType parses a type name, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "decision", "decisions":
		return TypeDecision, nil
	case "task", "tasks":
		return TypeTask, nil
	case "note", "notes":
		return TypeNote, nil
	case "prompt", "prompts":
		return TypePrompt, nil
	case "component", "components":
		return TypeComponent, nil
	case "link", "links":
		return TypeLink, nil
	}
	return "", merr.EntityTypeInvalid(s)
}

// Plural returns the collection name used in storage and resource URIs.
func (t Type) Plural() string {
	return string(t) + "s"
}

// Base carries the fields shared by every entity type. Optional string
// fields use "" for absent.
type Base struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	CreatedBy      string    `json:"created_by,omitempty"`
	SequenceNumber int       `json:"sequence_number"`
}

// Meta returns the shared base fields; promoted through embedding so every
// entity type satisfies Entity.
func (b *Base) Meta() *Base { return b }

// ShortID returns the 7-character display form of the entity id.
func (b *Base) ShortID() string {
	if len(b.ID) <= 7 {
		return b.ID
	}
	return b.ID[:7]
}

// Entity is implemented by all six entity types.
type Entity interface {
	EntityType() Type
	Meta() *Base
	Validate() error
}

// validateBase checks the shared fields and normalizes title and tags in
// place.
func (b *Base) validateBase() error {
	b.Title = strings.TrimSpace(b.Title)
	if err := ValidateTitle(b.Title); err != nil {
		return err
	}
	if len(b.Content) > MaxContentSize {
		return merr.Validation("content", "content exceeds %d bytes", MaxContentSize)
	}
	tags, err := NormalizeTags(b.Tags)
	if err != nil {
		return err
	}
	b.Tags = tags
	return nil
}

package entity

import (
	"strings"

	"github.com/medullahq/medulla/internal/merr"
)

// ComponentStatus is the lifecycle state of a system component.
type ComponentStatus string

const (
	ComponentActive     ComponentStatus = "active"
	ComponentDeprecated ComponentStatus = "deprecated"
	ComponentPlanned    ComponentStatus = "planned"
)

// ParseComponentStatus parses a status name. Empty input defaults to active.
func ParseComponentStatus(s string) (ComponentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return ComponentActive, nil
	case "deprecated":
		return ComponentDeprecated, nil
	case "planned":
		return ComponentPlanned, nil
	}
	return "", merr.Validation("status", "invalid component status: %q", s)
}

// Component describes a part of the system, optionally anchored to a path in
// the repository.
type Component struct {
	Base
	Status ComponentStatus `json:"status"`
	Path   string          `json:"path,omitempty"`
}

func (c *Component) EntityType() Type { return TypeComponent }

func (c *Component) Validate() error {
	if err := c.validateBase(); err != nil {
		return err
	}
	status, err := ParseComponentStatus(string(c.Status))
	if err != nil {
		return err
	}
	c.Status = status
	return nil
}

package entity

import (
	"strings"

	"github.com/medullahq/medulla/internal/merr"
)

// DecisionStatus is the lifecycle state of a decision record.
type DecisionStatus string

const (
	DecisionProposed   DecisionStatus = "proposed"
	DecisionAccepted   DecisionStatus = "accepted"
	DecisionSuperseded DecisionStatus = "superseded"
	DecisionDeprecated DecisionStatus = "deprecated"
)

// ParseDecisionStatus parses a status name, case-insensitively. Empty input
// defaults to proposed.
func ParseDecisionStatus(s string) (DecisionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proposed":
		return DecisionProposed, nil
	case "accepted":
		return DecisionAccepted, nil
	case "superseded":
		return DecisionSuperseded, nil
	case "deprecated":
		return DecisionDeprecated, nil
	}
	return "", merr.Validation("status", "invalid decision status: %q", s)
}

// Decision records an architectural or product decision.
type Decision struct {
	Base
	Status       DecisionStatus `json:"status"`
	Context      string         `json:"context,omitempty"`
	Consequences []string       `json:"consequences,omitempty"`
	SupersededBy string         `json:"superseded_by,omitempty"`
}

func (d *Decision) EntityType() Type { return TypeDecision }

func (d *Decision) Validate() error {
	if err := d.validateBase(); err != nil {
		return err
	}
	status, err := ParseDecisionStatus(string(d.Status))
	if err != nil {
		return err
	}
	d.Status = status
	if len(d.Context) > MaxContextSize {
		return merr.Validation("context", "context exceeds %d bytes", MaxContextSize)
	}
	for i, c := range d.Consequences {
		if len(c) > MaxConsequenceSize {
			return merr.Validation("consequences", "consequence %d exceeds %d bytes", i, MaxConsequenceSize)
		}
	}
	return nil
}

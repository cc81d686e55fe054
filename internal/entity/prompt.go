package entity

import "github.com/medullahq/medulla/internal/merr"

// Prompt is a reusable prompt template, optionally constrained by a JSON
// output schema.
type Prompt struct {
	Base
	Template     string `json:"template"`
	OutputSchema string `json:"output_schema,omitempty"`
}

func (p *Prompt) EntityType() Type { return TypePrompt }

func (p *Prompt) Validate() error {
	if err := p.validateBase(); err != nil {
		return err
	}
	if p.Template == "" {
		return merr.Validation("template", "template is required")
	}
	if len(p.Template) > MaxTemplateSize {
		return merr.Validation("template", "template exceeds %d bytes", MaxTemplateSize)
	}
	if p.OutputSchema != "" {
		if err := ValidateJSONSchema(p.OutputSchema); err != nil {
			return err
		}
	}
	return nil
}

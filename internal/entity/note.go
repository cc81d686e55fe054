package entity

// Note is free-form knowledge with an optional subtype ("meeting",
// "research", ...).
type Note struct {
	Base
	NoteType string `json:"note_type,omitempty"`
}

func (n *Note) EntityType() Type { return TypeNote }

func (n *Note) Validate() error {
	return n.validateBase()
}

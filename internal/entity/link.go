package entity

// Link is an external reference with an optional subtype ("docs", "issue",
// ...).
type Link struct {
	Base
	URL      string `json:"url"`
	LinkType string `json:"link_type,omitempty"`
}

func (l *Link) EntityType() Type { return TypeLink }

func (l *Link) Validate() error {
	if err := l.validateBase(); err != nil {
		return err
	}
	return ValidateURL(l.URL)
}
